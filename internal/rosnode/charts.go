package rosnode

import (
	"github.com/vitalis-app/rosnode-agent/internal/charts"
	"github.com/vitalis-app/rosnode-agent/internal/models"
)

const family = "rosnode"

var definitions = charts.MustNew(
	models.Chart{
		ID:      "nodes_number",
		Title:   "The total number of nodes",
		Units:   "amount",
		Family:  family,
		Context: "rosnode.number",
		Type:    models.ChartLine,
		Dimensions: []models.Dimension{
			{ID: DimNodesNumber, Algorithm: models.AlgorithmAbsolute, Multiplier: 1, Divisor: 1},
		},
	},
	models.Chart{
		ID:         "nodes_name",
		Title:      "Name of nodes",
		Units:      "names",
		Family:     family,
		Context:    "rosnode.name",
		Type:       models.ChartString,
		Dimensions: []models.Dimension{{ID: DimNodesName}},
	},
	models.Chart{
		ID:         "nodes_info",
		Title:      "Info of nodes",
		Units:      "info",
		Family:     family,
		Context:    "rosnode.info",
		Type:       models.ChartString,
		Dimensions: []models.Dimension{{ID: DimNodesInfo}},
	},
)

// Charts returns the chart catalog shared by every rosnode collector.
func Charts() *charts.Registry { return definitions }
