// Package charts holds the immutable catalog of chart definitions that a
// collector's Values are matched against.
package charts

import (
	"fmt"

	"github.com/vitalis-app/rosnode-agent/internal/models"
)

// Registry is an ordered, read-only set of chart definitions.
// It is safe for concurrent use because nothing mutates it after New.
type Registry struct {
	charts []models.Chart
	dims   map[string]models.ChartType
}

// New validates the charts and returns a registry that owns a deep copy of
// them. Chart ids and dimension ids must be unique across the registry.
func New(charts ...models.Chart) (*Registry, error) {
	r := &Registry{
		charts: make([]models.Chart, 0, len(charts)),
		dims:   make(map[string]models.ChartType),
	}
	seen := make(map[string]bool, len(charts))

	for _, c := range charts {
		if c.ID == "" {
			return nil, fmt.Errorf("chart with empty id")
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate chart id %q", c.ID)
		}
		if len(c.Dimensions) == 0 {
			return nil, fmt.Errorf("chart %q has no dimensions", c.ID)
		}
		for _, d := range c.Dimensions {
			if d.ID == "" {
				return nil, fmt.Errorf("chart %q: dimension with empty id", c.ID)
			}
			if _, dup := r.dims[d.ID]; dup {
				return nil, fmt.Errorf("chart %q: duplicate dimension id %q", c.ID, d.ID)
			}
			if !c.IsText() && d.Divisor == 0 {
				return nil, fmt.Errorf("chart %q: dimension %q has zero divisor", c.ID, d.ID)
			}
			r.dims[d.ID] = c.Type
		}
		seen[c.ID] = true
		r.charts = append(r.charts, c.Clone())
	}

	return r, nil
}

// MustNew is New for static catalogs; it panics on an invalid definition.
func MustNew(charts ...models.Chart) *Registry {
	r, err := New(charts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Charts returns a deep copy of the definitions in registration order.
func (r *Registry) Charts() []models.Chart {
	out := make([]models.Chart, len(r.charts))
	for i, c := range r.charts {
		out[i] = c.Clone()
	}
	return out
}

// DimensionIDs lists every declared dimension in chart order.
func (r *Registry) DimensionIDs() []string {
	ids := make([]string, 0, len(r.dims))
	for _, c := range r.charts {
		for _, d := range c.Dimensions {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

// Fill sets a zero value for every declared dimension missing from values:
// "" for text charts, 0 for numeric ones. Present keys are left alone.
func (r *Registry) Fill(values models.Values) {
	for id, typ := range r.dims {
		if _, ok := values[id]; ok {
			continue
		}
		if typ == models.ChartString {
			values[id] = ""
		} else {
			values[id] = int64(0)
		}
	}
}

// Missing returns the declared dimensions that values does not carry.
func (r *Registry) Missing(values models.Values) []string {
	var missing []string
	for _, id := range r.DimensionIDs() {
		if _, ok := values[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
