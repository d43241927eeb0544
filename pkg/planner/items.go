package planner

import (
	"errors"
	"fmt"
	"strings"

	fperrors "github.com/matzehuels/flashplan/pkg/errors"
	"github.com/matzehuels/flashplan/pkg/layout"
	"github.com/matzehuels/flashplan/pkg/size"
)

var (
	// ErrGroupSize is returned for size edits on groups, whose size is
	// always the sum of their children.
	ErrGroupSize = errors.New("group size is derived from its children")

	// ErrUnknownField is returned for edits of a field that does not exist.
	ErrUnknownField = errors.New("unknown field")

	// ErrPartitionField is returned for device and span edits on groups.
	ErrPartitionField = errors.New("field applies to partitions only")

	// ErrChildAddress is returned for address edits on group children,
	// which are always laid out by their group.
	ErrChildAddress = errors.New("group children are placed by their group")
)

// Field names an editable item attribute.
type Field string

const (
	FieldName    Field = "name"
	FieldSize    Field = "size"
	FieldRegion  Field = "region"
	FieldAddress Field = "address"
	FieldDevice  Field = "device"
	FieldSpan    Field = "span"
)

// ParseField maps a field name. "sizeStr" is accepted for size.
func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldName, FieldSize, FieldRegion, FieldAddress, FieldDevice, FieldSpan:
		return f, nil
	case "sizestr":
		return FieldSize, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// AddItem adds spec, with any group children, at the root or inside the
// group parentID (use [layout.NoParent] for the root). Partitions named
// like the pad get the device pad size. It returns the new item's id.
func (p *Planner) AddItem(spec layout.Spec, parentID int) (int, error) {
	var id int
	err := p.mutate("add_item", func() error {
		if err := validateSpec(spec); err != nil {
			return err
		}
		it, err := p.forest.Add(p.withPadSize(spec), parentID)
		if err != nil {
			return wrap(err, "add item %q", spec.Name)
		}
		id = it.ID
		p.logger.Debug("added item", "id", id, "name", spec.Name, "kind", spec.Kind)
		return nil
	})
	return id, err
}

// RemoveItem removes an item; removing a group drops its subtree.
func (p *Planner) RemoveItem(id int) error {
	return p.mutate("remove_item", func() error {
		if err := p.forest.Remove(id); err != nil {
			return wrap(err, "remove item %d", id)
		}
		return nil
	})
}

// MoveItem relocates dragged relative to target. See [layout.Forest.Move].
func (p *Planner) MoveItem(dragged, target int, pos layout.Position) error {
	return p.mutate("move_item", func() error {
		if err := p.forest.Move(dragged, target, pos); err != nil {
			return wrap(err, "move item %d", dragged)
		}
		return nil
	})
}

// ApplyDraft stores a field value without resolving. Renaming a partition
// to the pad name still sets the pad size; downstream placement is left
// alone until the next commit.
func (p *Planner) ApplyDraft(id int, field Field, value string) error {
	err := p.set(id, field, value, false)
	p.logger.Debug("draft edit", "id", id, "field", field, "err", err)
	return err
}

// Commit stores a field value and resolves. Values are checked before
// anything changes:
//
//   - name must be empty or an identifier; the pad name sets the pad size
//   - size is rejected on groups; on partitions it unpins the roots that
//     follow the edited item in its region
//   - address "" or "auto" unpins, anything else pins at the parsed value
//   - span is a comma separated list of names
func (p *Planner) Commit(id int, field Field, value string) error {
	return p.mutate("commit", func() error {
		return p.set(id, field, value, true)
	})
}

func (p *Planner) set(id int, field Field, value string, commit bool) error {
	it, parent, ok := p.forest.Find(id)
	if !ok {
		return wrap(fmt.Errorf("%w: %d", layout.ErrUnknownItem, id), "edit %s", field)
	}

	switch field {
	case FieldName:
		if commit {
			if err := fperrors.ValidateItemName(value); err != nil {
				return err
			}
		}
		it.Name = value
		if !it.IsGroup() && value == p.opts.PadName {
			it.SizeStr = p.PadSize()
		}

	case FieldSize:
		if it.IsGroup() {
			return wrap(ErrGroupSize, "edit size of %q", it.Name)
		}
		if commit && p.strict {
			if err := fperrors.ValidateSizeText(value); err != nil {
				return err
			}
		}
		it.SizeStr = value
		if commit {
			unpinned, err := layout.UnpinDownstream(p.forest, id)
			if err != nil {
				return wrap(err, "edit size of %q", it.Name)
			}
			p.logger.Debug("reflowing after size edit", "id", id, "unpinned", len(unpinned))
		}

	case FieldRegion:
		value = strings.TrimSpace(value)
		if commit && value != "" {
			if err := fperrors.ValidateRegionName(value); err != nil {
				return err
			}
		}
		it.Region = value

	case FieldAddress:
		if parent != nil {
			return wrap(ErrChildAddress, "edit address of %q", it.Name)
		}
		switch v := strings.TrimSpace(value); strings.ToLower(v) {
		case "", "auto":
			it.Unpin()
		default:
			if commit && p.strict {
				if err := fperrors.ValidateSizeText(v); err != nil {
					return err
				}
			}
			it.Pin(size.Parse(v))
		}

	case FieldDevice:
		if it.IsGroup() {
			return wrap(ErrPartitionField, "edit device of %q", it.Name)
		}
		it.Device = strings.TrimSpace(value)

	case FieldSpan:
		if it.IsGroup() {
			return wrap(ErrPartitionField, "edit span of %q", it.Name)
		}
		span := SplitSpan(value)
		if commit {
			if err := fperrors.ValidateSpan(span); err != nil {
				return err
			}
		}
		it.Span = span

	default:
		return wrap(fmt.Errorf("%w: %q", ErrUnknownField, field), "edit item %d", id)
	}
	return nil
}

// SplitSpan parses comma separated span text, dropping blanks.
func SplitSpan(text string) []string {
	var out []string
	for _, s := range strings.Split(text, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// withPadSize returns a copy of spec in which every partition named like
// the pad carries the device pad size.
func (p *Planner) withPadSize(spec layout.Spec) layout.Spec {
	if spec.Kind == layout.KindPartition && spec.Name == p.opts.PadName {
		spec.SizeStr = p.PadSize()
	}
	if len(spec.Children) > 0 {
		children := make([]layout.Spec, len(spec.Children))
		for i, c := range spec.Children {
			children[i] = p.withPadSize(c)
		}
		spec.Children = children
	}
	return spec
}

func validateSpec(spec layout.Spec) error {
	if err := fperrors.ValidateItemName(spec.Name); err != nil {
		return err
	}
	if spec.Region != "" {
		if err := fperrors.ValidateRegionName(spec.Region); err != nil {
			return err
		}
	}
	for _, c := range spec.Children {
		if err := validateSpec(c); err != nil {
			return err
		}
	}
	return nil
}
