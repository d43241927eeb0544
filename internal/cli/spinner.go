package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerTick = 80 * time.Millisecond

// spinner animates a status line on w until stopped or until its context
// ends. The message can change while it runs.
type spinner struct {
	w       io.Writer
	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	exited  chan struct{}
	started bool
	once    sync.Once

	mu    sync.Mutex
	msg   string
	width int
}

func newSpinner(parent context.Context, w io.Writer, msg string) *spinner {
	ctx, cancel := context.WithCancel(parent)
	return &spinner{w: w, parent: parent, ctx: ctx, cancel: cancel, exited: make(chan struct{}), msg: msg}
}

// start launches the animation goroutine. It returns s for chaining.
func (s *spinner) start() *spinner {
	s.started = true
	go s.run()
	return s
}

func (s *spinner) run() {
	defer close(s.exited)
	t := time.NewTicker(spinnerTick)
	defer t.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-s.ctx.Done():
			s.clear()
			return
		case <-t.C:
			s.draw(spinnerFrames[frame%len(spinnerFrames)])
		}
	}
}

func (s *spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := styleIconSpinner.Render(frame) + " " + StyleDim.Render(s.msg)
	if n := len(s.msg) + 2; n > s.width {
		s.width = n
	}
	fmt.Fprint(s.w, "\r"+line)
}

func (s *spinner) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprint(s.w, "\r"+strings.Repeat(" ", s.width)+"\r")
		s.width = 0
	}
}

// update replaces the message shown on the next frame.
func (s *spinner) update(msg string) {
	s.mu.Lock()
	s.msg = msg
	s.mu.Unlock()
}

// stop ends the animation and clears the line. Safe to call repeatedly.
func (s *spinner) stop() {
	s.once.Do(func() {
		s.cancel()
		if s.started {
			<-s.exited
		}
	})
}

// fail stops the spinner and reports msg as an error.
func (s *spinner) fail(msg string) {
	s.stop()
	printError("%s", msg)
}

// interrupted reports whether the parent context ended before stop.
func (s *spinner) interrupted() bool {
	return s.parent.Err() != nil
}
