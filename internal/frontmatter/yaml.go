package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxDepth = 128

// keptStyles are the presentation styles carried over from parsed YAML.
const keptStyles = yaml.DoubleQuotedStyle | yaml.SingleQuotedStyle | yaml.LiteralStyle | yaml.FoldedStyle | yaml.FlowStyle

// Alias expansion may grow a document to at most expansionRatio times its
// own node count, and never beyond minExpansionBudget nodes unless the
// document itself is larger.
const (
	expansionRatio     = 10
	minExpansionBudget = 10_000
)

var errExpansion = errors.New("aliases expand beyond the allowed document size")

// UnmarshalYAML decodes any YAML node into v.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	val, err := newDecoder(node).decode(node, 0)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// MarshalYAML encodes v as a YAML node.
func (v Value) MarshalYAML() (any, error) {
	return v.toNode(), nil
}

// decodeHeader parses the accumulated header text. Blank or comment-only
// headers produce an empty mapping.
func decodeHeader(text string) (Value, error) {
	if strings.TrimSpace(text) == "" {
		return Mapping(), nil
	}
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		return Value{}, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
	}
	if node.Kind == 0 || (node.Kind == yaml.DocumentNode && len(node.Content) == 0) {
		return Mapping(), nil
	}
	val, err := newDecoder(&node).decode(&node, 0)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
	}
	return val, nil
}

// encodeHeader renders v as a YAML document with two-space indentation.
func encodeHeader(v Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v.toNode()); err != nil {
		return nil, fmt.Errorf("frontmatter: encode header: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("frontmatter: encode header: %w", err)
	}
	return buf.Bytes(), nil
}

// decoder turns a yaml.Node tree into a Value, expanding aliases within a
// node budget.
type decoder struct {
	budget int
}

func newDecoder(root *yaml.Node) *decoder {
	return &decoder{budget: max(minExpansionBudget, expansionRatio*countNodes(root))}
}

// countNodes returns the size of the tree as written, aliases not followed.
func countNodes(root *yaml.Node) int {
	n := 0
	stack := []*yaml.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n++
		stack = append(stack, node.Content...)
	}
	return n
}

func (d *decoder) decode(node *yaml.Node, depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, fmt.Errorf("line %d: nesting deeper than %d levels", node.Line, maxDepth)
	}
	d.budget--
	if d.budget < 0 {
		return Value{}, fmt.Errorf("line %d: %w", node.Line, errExpansion)
	}

	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null(), nil
		}
		return d.decode(node.Content[0], depth+1)

	case yaml.AliasNode:
		if node.Alias == nil {
			return Value{}, fmt.Errorf("line %d: unresolved alias %q", node.Line, node.Value)
		}
		return d.decode(node.Alias, depth+1)

	case yaml.ScalarNode:
		return fromScalar(node)

	case yaml.SequenceNode:
		v := Value{kind: KindSequence, items: make([]Value, 0, len(node.Content)), style: node.Style & yaml.FlowStyle}
		for _, child := range node.Content {
			item, err := d.decode(child, depth+1)
			if err != nil {
				return Value{}, err
			}
			v.items = append(v.items, item)
		}
		return v, nil

	case yaml.MappingNode:
		return d.decodeMapping(node, depth)
	}

	return Value{}, fmt.Errorf("line %d: unsupported node kind %d", node.Line, node.Kind)
}

// decodeMapping builds a mapping and applies "<<" merge keys: merged fields
// come first, earlier sources win over later ones, and fields written in the
// mapping itself win over all of them.
func (d *decoder) decodeMapping(node *yaml.Node, depth int) (Value, error) {
	explicit := Mapping()
	var merged []Value

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		if keyNode.Kind == yaml.AliasNode && keyNode.Alias != nil {
			keyNode = keyNode.Alias
		}
		if keyNode.Kind != yaml.ScalarNode {
			return Value{}, fmt.Errorf("line %d: mapping key must be a scalar", keyNode.Line)
		}
		field, err := d.decode(valNode, depth+1)
		if err != nil {
			return Value{}, err
		}
		if keyNode.ShortTag() == "!!merge" {
			sources, err := mergeSources(field, keyNode.Line)
			if err != nil {
				return Value{}, err
			}
			merged = append(merged, sources...)
			continue
		}
		if explicit.Has(keyNode.Value) {
			return Value{}, fmt.Errorf("line %d: duplicate key %q", keyNode.Line, keyNode.Value)
		}
		explicit.put(keyNode.Value, field)
	}

	if len(merged) == 0 {
		explicit.style = node.Style & yaml.FlowStyle
		return explicit, nil
	}

	v := Mapping()
	v.style = node.Style & yaml.FlowStyle
	for _, src := range merged {
		for _, e := range src.entries {
			if !v.Has(e.key) {
				v.put(e.key, e.val)
			}
		}
	}
	for _, e := range explicit.entries {
		if i := v.index(e.key); i >= 0 {
			v.entries[i].val = e.val
		} else {
			v.put(e.key, e.val)
		}
	}
	return v, nil
}

// mergeSources returns the mappings named by a merge key's value: one
// mapping or a sequence of them.
func mergeSources(val Value, line int) ([]Value, error) {
	switch val.kind {
	case KindMapping:
		return []Value{val}, nil
	case KindSequence:
		for _, item := range val.items {
			if item.kind != KindMapping {
				return nil, fmt.Errorf("line %d: merge sequence may only hold mappings, got %s", line, item.kind)
			}
		}
		return val.items, nil
	}
	return nil, fmt.Errorf("line %d: merge value must be a mapping, got %s", line, val.kind)
}

func fromScalar(node *yaml.Node) (Value, error) {
	style := node.Style & keptStyles

	switch node.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return Value{}, err
		}
		return Value{kind: KindBool, b: b, text: node.Value}, nil
	case "!!int":
		var i int64
		if err := node.Decode(&i); err == nil {
			return Value{kind: KindInt, i: i, text: node.Value}, nil
		}
		// Out of int64 range; keep it numeric.
		var f float64
		if err := node.Decode(&f); err != nil {
			return Value{}, err
		}
		return Value{kind: KindFloat, f: f, text: node.Value}, nil
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return Value{}, err
		}
		return Value{kind: KindFloat, f: f, text: node.Value}, nil
	case "!!timestamp":
		return Value{kind: KindTimestamp, text: node.Value}, nil
	default:
		return Value{kind: KindString, text: node.Value, style: style}, nil
	}
}

func (v Value) toNode() *yaml.Node {
	switch v.kind {
	case KindString:
		style := v.style
		if !strings.Contains(v.text, "\n") {
			style &^= yaml.LiteralStyle | yaml.FoldedStyle
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.text, Style: style}
	case KindInt:
		text := v.text
		if text == "" {
			text = strconv.FormatInt(v.i, 10)
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: text}
	case KindFloat:
		text := v.text
		if text == "" {
			text = formatFloat(v.f)
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: text}
	case KindBool:
		text := v.text
		if text == "" {
			text = strconv.FormatBool(v.b)
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: text}
	case KindTimestamp:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: v.text}
	case KindSequence:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: v.style}
		for _, item := range v.items {
			node.Content = append(node.Content, item.toNode())
		}
		return node
	case KindMapping:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Style: v.style}
		for _, e := range v.entries {
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.key},
				e.val.toNode(),
			)
		}
		return node
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
