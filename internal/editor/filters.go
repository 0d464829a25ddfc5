package editor

import (
	"fmt"
	"strings"
)

// Filter names a visual effect offered by the filter operation.
type Filter string

const (
	FilterGrayscale Filter = "grayscale"
	FilterEnhance   Filter = "enhance"
	FilterVFlip     Filter = "vflip"
)

// filterOrder fixes the position of each filter in the chain.
var filterOrder = []struct {
	name Filter
	expr string
}{
	{FilterGrayscale, "format=gray"},
	{FilterEnhance, "eq=brightness=0.05:contrast=1.3:saturation=1.2"},
	{FilterVFlip, "vflip"},
}

// ParseFilters validates filter names.
func ParseFilters(names []string) ([]Filter, error) {
	out := make([]Filter, 0, len(names))
	for _, n := range names {
		f := Filter(strings.ToLower(strings.TrimSpace(n)))
		if f == "" {
			continue
		}
		if !f.valid() {
			return nil, fmt.Errorf("%w: unknown filter %q", ErrInvalidInput, n)
		}
		out = append(out, f)
	}
	return out, nil
}

func (f Filter) valid() bool {
	for _, o := range filterOrder {
		if o.name == f {
			return true
		}
	}
	return false
}

// FilterChain renders the -vf expression. Selection order and duplicates do not matter.
func FilterChain(filters []Filter) (string, error) {
	selected := make(map[Filter]bool, len(filters))
	for _, f := range filters {
		if !f.valid() {
			return "", fmt.Errorf("%w: unknown filter %q", ErrInvalidInput, f)
		}
		selected[f] = true
	}
	if len(selected) == 0 {
		return "", ErrNoFilters
	}

	parts := []string{"scale=1280:720", "fps=30"}
	for _, o := range filterOrder {
		if selected[o.name] {
			parts = append(parts, o.expr)
		}
	}
	return strings.Join(parts, ","), nil
}
