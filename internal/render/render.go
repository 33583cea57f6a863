package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

// Renderer writes an aggregated view in one output format.
type Renderer interface {
	Render(w io.Writer, view *domain.AggregatedView) error
}

func ForFormat(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return &TextRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "yaml", "yml":
		return &YAMLRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown output format %q (use text, json or yaml)", format)
}

type JSONRenderer struct {
	IncludeRaw bool
}

func (r *JSONRenderer) Render(w io.Writer, view *domain.AggregatedView) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(exportable(view, r.IncludeRaw))
}

// YAMLRenderer goes through JSON so field names and omissions match the API responses.
type YAMLRenderer struct{}

func (r *YAMLRenderer) Render(w io.Writer, view *domain.AggregatedView) error {
	data, err := json.Marshal(exportable(view, false))
	if err != nil {
		return err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	blockStyle(&doc)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(&doc)
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" {
		n.Style &^= yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func exportable(view *domain.AggregatedView, includeRaw bool) *domain.AggregatedView {
	if view == nil || includeRaw {
		return view
	}
	v := *view
	v.Raw = domain.RawMetrics{}
	return &v
}
