package domain

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLNode renders the value as a yaml node. Objects keep field order and
// integral floats keep a fractional part so they read back as floats.
func (v Value) YAMLNode() *yaml.Node {
	switch v.kind {
	case KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.b)}
	case KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v.i, 10)}
	case KindFloat:
		text := strconv.FormatFloat(v.f, 'g', -1, 64)
		if !strings.ContainsAny(text, ".eEIN") {
			text += ".0"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: text}
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.s}
	case KindArray:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.arr {
			node.Content = append(node.Content, item.YAMLNode())
		}
		return node
	default:
		return v.obj.YAMLNode()
	}
}

func (v Value) MarshalYAML() (interface{}, error) {
	return v.YAMLNode(), nil
}

// YAMLNode renders the fields as a yaml mapping in field order.
func (f *Fields) YAMLNode() *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	f.Range(func(name string, v Value) bool {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
			v.YAMLNode())
		return true
	})
	return node
}

func (f *Fields) MarshalYAML() (interface{}, error) {
	return f.YAMLNode(), nil
}
