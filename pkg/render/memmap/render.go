package memmap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/flashplan/pkg/cache"
)

// Format is an output format.
type Format string

const (
	FormatDOT Format = "dot"
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// Formats lists the supported formats.
var Formats = []Format{FormatSVG, FormatPNG, FormatDOT}

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format %q (want svg, png or dot)", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	default:
		return "text/vnd.graphviz"
	}
}

// Render lays out DOT source with Graphviz. FormatDOT returns the source
// unchanged.
func Render(ctx context.Context, dot string, format Format) ([]byte, error) {
	var gvFormat graphviz.Format
	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		gvFormat = graphviz.SVG
	case FormatPNG:
		gvFormat = graphviz.PNG
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, gvFormat, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// Renderer renders maps through a cache keyed by the DOT source.
type Renderer struct {
	cache  cache.Cache
	keyer  cache.Keyer
	ttl    time.Duration
	logger *log.Logger
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithTTL sets how long rendered artifacts stay cached. Zero keeps them
// until evicted.
func WithTTL(ttl time.Duration) RendererOption {
	return func(r *Renderer) { r.ttl = ttl }
}

// WithKeyer replaces the default cache keyer.
func WithKeyer(k cache.Keyer) RendererOption {
	return func(r *Renderer) { r.keyer = k }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) RendererOption {
	return func(r *Renderer) { r.logger = l }
}

// NewRenderer returns a renderer backed by c. A nil cache disables
// caching.
func NewRenderer(c cache.Cache, opts ...RendererOption) *Renderer {
	if c == nil {
		c = cache.Nop()
	}
	r := &Renderer{
		cache:  cache.Instrumented(c, "memmap"),
		keyer:  cache.NewDefaultKeyer(),
		logger: log.New(io.Discard),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Render draws m in format. Cache failures are logged and otherwise
// ignored.
func (r *Renderer) Render(ctx context.Context, m Map, format Format, opts Options) ([]byte, error) {
	dot := ToDOT(m, opts)
	if format == FormatDOT {
		return []byte(dot), nil
	}

	key := r.keyer.ArtifactKey(cache.Hash([]byte(dot)), cache.ArtifactKeyOpts{Format: string(format), Detailed: opts.Detailed})
	if data, ok, err := r.cache.Get(ctx, key); err != nil {
		r.logger.Warn("memory map cache read failed", "err", err)
	} else if ok {
		r.logger.Debug("memory map cache hit", "format", format)
		return data, nil
	}

	start := time.Now()
	data, err := Render(ctx, dot, format)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("rendered memory map", "format", format, "bytes", len(data), "duration", time.Since(start))

	if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
		r.logger.Warn("memory map cache write failed", "err", err)
	}
	return data, nil
}
