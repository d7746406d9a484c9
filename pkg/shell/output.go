package shell

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/adfharrison1/neemo/pkg/query"
	"gopkg.in/yaml.v3"
)

// Format selects how results are printed.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json or yaml.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: json, yaml)", s)
	}
}

func render(w io.Writer, format Format, v interface{}) error {
	if format == FormatYAML {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to render yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// aggregateView is what AGGREGATE prints in either format.
type aggregateView struct {
	Field   string      `json:"field" yaml:"field"`
	Op      query.Op    `json:"op" yaml:"op"`
	Matched int         `json:"matched" yaml:"matched"`
	Value   interface{} `json:"value" yaml:"value"`
	NoData  bool        `json:"no_data,omitempty" yaml:"no_data,omitempty"`
}

func newAggregateView(res *query.Result) aggregateView {
	view := aggregateView{Field: res.Field, Op: res.Op, Matched: res.Matched, NoData: res.NoData}
	switch v := res.Value().(type) {
	case query.Number:
		view.Value = v.Value()
	default:
		view.Value = v
	}
	return view
}
