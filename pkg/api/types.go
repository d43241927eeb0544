package api

import (
	"github.com/matzehuels/flashplan/pkg/catalog"
	"github.com/matzehuels/flashplan/pkg/layout"
	"github.com/matzehuels/flashplan/pkg/planner"
	"github.com/matzehuels/flashplan/pkg/session"
	"github.com/matzehuels/flashplan/pkg/size"
)

// Request bodies.

type CreateSessionRequest struct {
	Device   string `json:"device"`
	Template string `json:"template,omitempty"`
}

// DeviceRequest selects a device. With LoadTemplate the items are
// replaced by the device's default template.
type DeviceRequest struct {
	Device       string `json:"device"`
	LoadTemplate bool   `json:"load_template,omitempty"`
}

type TemplateRequest struct {
	Template string `json:"template"`
}

type RegionRequest struct {
	Name  string `json:"name,omitempty"`
	Start string `json:"start"`
	Size  string `json:"size"`
}

// ItemRequest adds an item. Sizes and addresses take the same text as
// field edits; children are only read for groups.
type ItemRequest struct {
	ParentID *int          `json:"parent_id,omitempty"`
	Kind     string        `json:"kind,omitempty"`
	Name     string        `json:"name"`
	Size     string        `json:"size,omitempty"`
	Region   string        `json:"region,omitempty"`
	Device   string        `json:"device,omitempty"`
	Address  string        `json:"address,omitempty"`
	Span     []string      `json:"span,omitempty"`
	Children []ItemRequest `json:"children,omitempty"`
}

func (r ItemRequest) spec() layout.Spec {
	s := layout.Spec{
		Kind:    layout.ParseKind(r.Kind),
		Name:    r.Name,
		SizeStr: r.Size,
		Region:  r.Region,
		Device:  r.Device,
		Span:    r.Span,
	}
	if r.Address != "" {
		a := size.Parse(r.Address)
		s.Address = &a
	}
	for _, c := range r.Children {
		s.Children = append(s.Children, c.spec())
	}
	return s
}

// EditRequest sets one field. Draft edits are stored without resolving.
type EditRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
	Draft bool   `json:"draft,omitempty"`
}

type MoveRequest struct {
	Target   int    `json:"target"`
	Position string `json:"position"`
}

type ReflowRequest struct {
	Region string `json:"region,omitempty"`
}

// Response bodies.

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type DeviceView struct {
	Key      string       `json:"key"`
	Name     string       `json:"name"`
	PadSize  uint64       `json:"pad_size"`
	Template string       `json:"template"`
	Regions  []RegionView `json:"regions"`
}

type TemplateView struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Regions     []string `json:"regions"`
}

type RegionView struct {
	Name    string `json:"name"`
	Start   string `json:"start"`
	Size    string `json:"size"`
	Bytes   uint64 `json:"bytes"`
	Default bool   `json:"default"`
}

type ItemView struct {
	ID             int        `json:"id"`
	Kind           string     `json:"kind"`
	Name           string     `json:"name"`
	Region         string     `json:"region,omitempty"`
	ResolvedRegion string     `json:"resolved_region,omitempty"`
	Address        string     `json:"address"`
	Pinned         bool       `json:"pinned"`
	Size           uint64     `json:"size"`
	SizeStr        string     `json:"size_str"`
	Device         string     `json:"device,omitempty"`
	Span           []string   `json:"span,omitempty"`
	Children       []ItemView `json:"children,omitempty"`
	Errors         []string   `json:"errors,omitempty"`
}

type UsageView struct {
	Region     string `json:"region"`
	MaxAddress string `json:"max_address"`
	Used       uint64 `json:"used"`
	Free       uint64 `json:"free"`
	Overflow   uint64 `json:"overflow"`
}

type SessionView struct {
	ID        string            `json:"id"`
	Device    DeviceView        `json:"device"`
	Template  string            `json:"template,omitempty"`
	Regions   []RegionView      `json:"regions"`
	Items     []ItemView        `json:"items"`
	Usage     []UsageView       `json:"usage"`
	Findings  []planner.Finding `json:"findings"`
	Conflicts []string          `json:"conflicts,omitempty"`
	Valid     bool              `json:"valid"`
}

type SessionSummary struct {
	ID       string `json:"id"`
	Device   string `json:"device"`
	Template string `json:"template,omitempty"`
	Items    int    `json:"items"`
}

type AddItemResponse struct {
	ItemID  int         `json:"item_id"`
	Session SessionView `json:"session"`
}

func deviceView(d catalog.Device) DeviceView {
	v := DeviceView{Key: d.Key, Name: d.Name, PadSize: d.PadSize, Template: d.Template}
	for _, r := range d.Regions {
		r.Default = true
		v.Regions = append(v.Regions, regionView(r))
	}
	return v
}

func templateView(t catalog.Template) TemplateView {
	return TemplateView{Key: t.Key, Name: t.Name, Description: t.Description, Regions: t.Regions()}
}

func regionView(r layout.Region) RegionView {
	return RegionView{
		Name:    r.Name,
		Start:   size.FormatHex(r.Start, 0),
		Size:    size.FormatForInput(r.Size),
		Bytes:   r.Size,
		Default: r.Default,
	}
}

func itemView(it *layout.Item) ItemView {
	v := ItemView{
		ID:             it.ID,
		Kind:           it.Kind.String(),
		Name:           it.Name,
		Region:         it.Region,
		ResolvedRegion: it.ResolvedRegion,
		Address:        size.FormatHex(it.Address, 0),
		Pinned:         it.Pinned,
		Size:           it.Size,
		SizeStr:        it.SizeStr,
		Device:         it.Device,
		Span:           it.Span,
		Errors:         it.Errors,
	}
	for _, c := range it.Children {
		v.Children = append(v.Children, itemView(c))
	}
	return v
}

func sessionView(id string, s planner.Snapshot) SessionView {
	v := SessionView{
		ID:       id,
		Device:   deviceView(s.Device),
		Template: s.Template,
		Regions:  []RegionView{},
		Items:    []ItemView{},
		Usage:    []UsageView{},
		Findings: s.Findings,
		Valid:    len(s.Findings) == 0,
	}
	if v.Findings == nil {
		v.Findings = []planner.Finding{}
	}
	for _, r := range s.Regions {
		v.Regions = append(v.Regions, regionView(r))
	}
	for _, it := range s.Items {
		v.Items = append(v.Items, itemView(it))
	}
	for _, u := range s.Usage {
		v.Usage = append(v.Usage, UsageView{
			Region:     u.Region.Name,
			MaxAddress: size.FormatHex(u.MaxAddress, 0),
			Used:       u.Used,
			Free:       u.Free,
			Overflow:   u.Overflow,
		})
	}
	for _, c := range s.Conflicts {
		v.Conflicts = append(v.Conflicts, c.String())
	}
	return v
}

func sessionSummary(s *session.Session) SessionSummary {
	snap := s.Snapshot()
	return SessionSummary{ID: s.ID, Device: snap.Device.Key, Template: snap.Template, Items: len(snap.Items)}
}
