// Package planner is the mutation context for a partition layout.
//
// A [Planner] owns the selected device, the region table, the item forest
// and the resolver options. Every mutating method either fails without
// touching state, or applies the whole change and then runs exactly one
// resolve and validate pass before returning. Readers therefore only ever
// see fully resolved generations of the layout.
//
// Text edits come in two tiers. [Planner.ApplyDraft] stores a field value
// without resolving, for per-keystroke updates. [Planner.Commit] stores it
// and resolves, applying the edit policies: a committed size change reflows
// the roots after the edited item, and renaming a partition to the pad name
// gives it the device pad size.
//
// A Planner is not safe for concurrent use; callers that share one across
// goroutines serialize access themselves (see the session package).
package planner

import (
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flashplan/pkg/catalog"
	fperrors "github.com/matzehuels/flashplan/pkg/errors"
	"github.com/matzehuels/flashplan/pkg/layout"
	"github.com/matzehuels/flashplan/pkg/observability"
)

// Planner holds one editable layout.
type Planner struct {
	catalog  *catalog.Catalog
	device   catalog.Device
	regions  *layout.RegionTable
	forest   *layout.Forest
	opts     layout.Options
	strict   bool
	template string

	// conflicts from the last import, cleared by any forest replacement.
	conflicts []layout.SpanConflict

	logger *log.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPageSize overrides the flash page size used for alignment.
func WithPageSize(n uint64) Option {
	return func(p *Planner) { p.opts.PageSize = n }
}

// WithPadName overrides the name of the boot-loader pad partition.
func WithPadName(name string) Option {
	return func(p *Planner) { p.opts.PadName = name }
}

// WithAlignment turns rounding of flash partition sizes up to the page
// size on or off. It is on by default.
func WithAlignment(on bool) Option {
	return func(p *Planner) { p.opts.AlignSizes = on }
}

// WithoutAlignment is WithAlignment(false).
func WithoutAlignment() Option { return WithAlignment(false) }

// WithStrictSizes makes committed size edits reject text that does not
// look like a size instead of coercing it to zero.
func WithStrictSizes() Option {
	return func(p *Planner) { p.strict = true }
}

// New returns a planner for deviceKey with the device's default regions
// and an empty forest.
func New(c *catalog.Catalog, deviceKey string, opts ...Option) (*Planner, error) {
	p := &Planner{
		catalog: c,
		forest:  layout.NewForest(),
		opts:    layout.Options{AlignSizes: true, PageSize: layout.DefaultPageSize, PadName: layout.DefaultPadName},
		logger:  log.New(io.Discard),
	}
	for _, o := range opts {
		o(p)
	}

	d, err := c.Device(deviceKey)
	if err != nil {
		return nil, wrap(err, "select device %q", deviceKey)
	}
	rt, err := d.RegionTable()
	if err != nil {
		return nil, wrap(err, "select device %q", deviceKey)
	}
	p.device, p.regions = d, rt
	p.Resolve()
	return p, nil
}

// Device returns the selected device preset.
func (p *Planner) Device() catalog.Device { return p.device }

// Catalog returns the catalog the planner draws devices and templates from.
func (p *Planner) Catalog() *catalog.Catalog { return p.catalog }

// Template returns the key of the last loaded template, or "" once the
// forest came from anywhere else.
func (p *Planner) Template() string { return p.template }

// Options returns the resolver options used for interactive edits.
func (p *Planner) Options() layout.Options { return p.opts }

// PadSize returns the current device's pad size as decimal text.
func (p *Planner) PadSize() string { return strconv.FormatUint(p.device.PadSize, 10) }

// Resolve runs one resolve and validate pass with the interactive options.
func (p *Planner) Resolve() {
	p.resolveWith(p.opts)
}

func (p *Planner) resolveWith(opts layout.Options) {
	start := time.Now()
	layout.Resolve(p.forest, p.regions, opts)
	layout.Validate(p.forest, p.regions)

	findings := len(layout.Findings(p.forest))
	elapsed := time.Since(start)
	observability.Planner().OnResolve(p.device.Key, p.forest.Len(), findings, elapsed)
	p.logger.Debug("resolved layout",
		"device", p.device.Key,
		"items", p.forest.Len(),
		"findings", findings,
		"align", opts.AlignSizes,
		"duration", elapsed)
}

// mutate runs fn and, when it succeeds, resolves. fn must leave state
// untouched when it fails.
func (p *Planner) mutate(op string, fn func() error) error {
	return p.mutateWith(op, p.opts, fn)
}

func (p *Planner) mutateWith(op string, opts layout.Options, fn func() error) error {
	err := fn()
	observability.Planner().OnMutation(op, err)
	if err != nil {
		p.logger.Debug("mutation rejected", "op", op, "err", err)
		return err
	}
	p.resolveWith(opts)
	return nil
}

// wrap attaches an error code matching the sentinel in err's chain.
func wrap(err error, format string, args ...any) error {
	var fe *fperrors.Error
	if errors.As(err, &fe) {
		return err
	}

	code := fperrors.ErrCodeInternal
	switch {
	case errors.Is(err, layout.ErrUnknownItem):
		code = fperrors.ErrCodeItemNotFound
	case errors.Is(err, layout.ErrNotGroup), errors.Is(err, layout.ErrInvalidMove):
		code = fperrors.ErrCodeInvalidMove
	case errors.Is(err, layout.ErrDuplicateRegion):
		code = fperrors.ErrCodeDuplicateRegion
	case errors.Is(err, layout.ErrUnknownRegion):
		code = fperrors.ErrCodeRegionNotFound
	case errors.Is(err, layout.ErrDefaultRegion):
		code = fperrors.ErrCodeDefaultRegion
	case errors.Is(err, layout.ErrInvalidRegion):
		code = fperrors.ErrCodeInvalidRegion
	case errors.Is(err, layout.ErrDuplicateRecord), errors.Is(err, layout.ErrSpanCycle):
		code = fperrors.ErrCodeInvalidFormat
	case errors.Is(err, catalog.ErrUnknownDevice):
		code = fperrors.ErrCodeDeviceNotFound
	case errors.Is(err, catalog.ErrUnknownTemplate):
		code = fperrors.ErrCodeTemplateNotFound
	case errors.Is(err, catalog.ErrInvalidEntry):
		code = fperrors.ErrCodeInvalidInput
	case errors.Is(err, ErrGroupSize):
		code = fperrors.ErrCodeGroupSize
	case errors.Is(err, ErrUnknownField), errors.Is(err, ErrPartitionField), errors.Is(err, ErrChildAddress):
		code = fperrors.ErrCodeInvalidField
	}
	return fperrors.Wrap(code, err, format, args...)
}
