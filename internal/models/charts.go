package models

// ChartType selects how the backend renders a chart.
type ChartType string

const (
	ChartLine    ChartType = "line"
	ChartArea    ChartType = "area"
	ChartStacked ChartType = "stacked"
	// ChartString charts carry text dimensions and are displayed, not plotted.
	ChartString ChartType = "string"
)

// Algorithm is the value transform the backend applies to a numeric dimension.
type Algorithm string

const (
	AlgorithmAbsolute                   Algorithm = "absolute"
	AlgorithmIncremental                Algorithm = "incremental"
	AlgorithmPercentageOfAbsoluteRow    Algorithm = "percentage-of-absolute-row"
	AlgorithmPercentageOfIncrementalRow Algorithm = "percentage-of-incremental-row"
)

// Chart is the static definition of one chart and its ordered dimensions.
type Chart struct {
	ID         string      `json:"id"`
	Name       string      `json:"name,omitempty"`
	Title      string      `json:"title"`
	Units      string      `json:"units"`
	Family     string      `json:"family"`
	Context    string      `json:"context"`
	Type       ChartType   `json:"type"`
	Dimensions []Dimension `json:"dimensions"`
}

// Dimension describes one value of a chart. String charts leave Algorithm,
// Multiplier and Divisor at their zero values.
type Dimension struct {
	ID         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	Algorithm  Algorithm `json:"algorithm,omitempty"`
	Multiplier int       `json:"multiplier,omitempty"`
	Divisor    int       `json:"divisor,omitempty"`
}

// IsText reports whether the chart's dimensions hold strings.
func (c Chart) IsText() bool { return c.Type == ChartString }

// Clone returns a deep copy of c.
func (c Chart) Clone() Chart {
	out := c
	out.Dimensions = append([]Dimension(nil), c.Dimensions...)
	return out
}
