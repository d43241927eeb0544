// Package pmstatic reads and writes pm_static.yml partition tables.
//
// A pm_static.yml file is a mapping from partition name to its attributes:
//
//	mcuboot_primary:
//	  address: 0xC000
//	  region: flash_primary
//	  size: 0xE1200
//	  orig_span: &mcuboot_primary_span_def
//	    - mcuboot_pad
//	    - app
//	  span: *mcuboot_primary_span_def
//
// [Decode] keeps document order and accepts hexadecimal, decimal and K/M
// suffixed values, span as a list or a single name, and orig_span when span
// is missing. Unknown attributes are ignored. [Encode] writes the records
// in the given order with hexadecimal values, an anchored orig_span plus an
// alias span for groups, and a flow-style span for partitions.
package pmstatic

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/flashplan/pkg/layout"
	"github.com/matzehuels/flashplan/pkg/size"
)

// ErrFormat is returned for documents that are not a partition mapping.
var ErrFormat = errors.New("invalid pm_static document")

// Decode reads records from a pm_static.yml document. An empty document
// yields no records.
func Decode(r io.Reader) ([]layout.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// Unmarshal is [Decode] on a byte slice.
func Unmarshal(data []byte) ([]layout.Record, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, nil
	}

	doc := deref(root.Content[0])
	if doc.Kind == yaml.ScalarNode && doc.Tag == "!!null" {
		return nil, nil
	}
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: line %d: top level must be a mapping of partitions", ErrFormat, doc.Line)
	}

	recs := make([]layout.Record, 0, len(doc.Content)/2)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, val := doc.Content[i], deref(doc.Content[i+1])
		rec, err := decodeRecord(key.Value, val)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %s: %v", ErrFormat, key.Line, key.Value, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func decodeRecord(name string, n *yaml.Node) (layout.Record, error) {
	rec := layout.Record{Name: name}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return rec, nil
	}
	if n.Kind != yaml.MappingNode {
		return rec, errors.New("partition must be a mapping")
	}

	var span, origSpan []string
	var hasSpan bool
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i].Value, deref(n.Content[i+1])
		switch key {
		case "address":
			v, err := scalar(val)
			if err != nil {
				return rec, fmt.Errorf("address: %w", err)
			}
			a := size.Parse(v)
			rec.Address = &a
		case "size":
			v, err := scalar(val)
			if err != nil {
				return rec, fmt.Errorf("size: %w", err)
			}
			rec.Size = size.Parse(v)
		case "region":
			rec.Region = val.Value
		case "device":
			rec.Device = val.Value
		case "span":
			s, err := names(val)
			if err != nil {
				return rec, fmt.Errorf("span: %w", err)
			}
			span, hasSpan = s, true
		case "orig_span":
			s, err := names(val)
			if err != nil {
				return rec, fmt.Errorf("orig_span: %w", err)
			}
			origSpan = s
		}
	}
	if hasSpan {
		rec.Span = span
	} else {
		rec.Span = origSpan
	}
	return rec, nil
}

func deref(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func scalar(n *yaml.Node) (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", errors.New("expected a number")
	}
	return n.Value, nil
}

// names reads a list of names or a single name.
func names(n *yaml.Node) ([]string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" || n.Value == "" {
			return nil, nil
		}
		return []string{n.Value}, nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			c = deref(c)
			if c.Kind != yaml.ScalarNode {
				return nil, errors.New("entries must be names")
			}
			out = append(out, c.Value)
		}
		return out, nil
	}
	return nil, errors.New("expected a name or a list of names")
}

// Encode writes records as a pm_static.yml document in the given order.
// Unnamed records are skipped; zero sizes and unplaced addresses are
// omitted.
func Encode(w io.Writer, recs []layout.Record) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, rec := range recs {
		if rec.Name == "" {
			continue
		}
		doc.Content = append(doc.Content, str(rec.Name), encodeRecord(rec))
	}
	if len(doc.Content) == 0 {
		return nil
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{doc}}); err != nil {
		return err
	}
	return enc.Close()
}

// Marshal is [Encode] into a byte slice.
func Marshal(recs []layout.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, recs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeRecord(rec layout.Record) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, val *yaml.Node) { m.Content = append(m.Content, str(key), val) }

	if rec.Address != nil {
		add("address", hex(*rec.Address))
	}
	if rec.Region != "" {
		add("region", str(rec.Region))
	}
	if rec.Size > 0 {
		add("size", hex(rec.Size))
	}
	if rec.Device != "" {
		add("device", str(rec.Device))
	}

	switch {
	case rec.Group && len(rec.Span) > 0:
		seq := list(rec.Span)
		seq.Anchor = AnchorName(rec.Name)
		add("orig_span", seq)
		add("span", &yaml.Node{Kind: yaml.AliasNode, Value: seq.Anchor, Alias: seq})
	case !rec.Group && len(rec.Span) > 0:
		seq := list(rec.Span)
		seq.Style = yaml.FlowStyle
		add("span", seq)
	}
	return m
}

func str(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func hex(v uint64) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: size.FormatHex(v, 0)}
}

func list(items []string) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, s := range items {
		seq.Content = append(seq.Content, str(s))
	}
	return seq
}

var anchorUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// AnchorName returns the YAML anchor used for a group's span list.
func AnchorName(group string) string {
	if group == "" {
		group = "group"
	}
	return anchorUnsafe.ReplaceAllString(group, "_") + "_span_def"
}
