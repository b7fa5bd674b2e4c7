// Package rosnode discovers ROS nodes with the rosnode tool.
//
// Discovery runs two dependent commands per cycle:
//
//	rosnode list                  -> nodesnumber, nodesname
//	rosnode info <nodesname...>   -> nodesinfo
//
// The info command is only built when the list found at least one node.
package rosnode

import (
	"strings"

	"github.com/vitalis-app/rosnode-agent/internal/models"
	"github.com/vitalis-app/rosnode-agent/internal/pipeline"
)

// Dimension ids written by the stages.
const (
	DimNodesNumber = "nodesnumber"
	DimNodesName   = "nodesname"
	DimNodesInfo   = "nodesinfo"
)

// Default base commands.
const (
	DefaultListCommand = "rosnode list"
	DefaultInfoCommand = "rosnode info"
)

// ListStage runs the discovery command.
// Reads nothing. Writes nodesnumber, and nodesname when at least one node exists.
type ListStage struct {
	Command string
}

// Name returns the stage identifier.
func (s ListStage) Name() string { return "list" }

// Resolve returns the base command unchanged.
func (s ListStage) Resolve(models.Values) (string, bool) {
	return s.Command, true
}

// Consume records one node per output line.
func (s ListStage) Consume(lines []string, values models.Values) {
	values[DimNodesNumber] = int64(len(lines))
	if len(lines) == 0 {
		return
	}

	names := make([]string, len(lines))
	for i, line := range lines {
		names[i] = trimTerminator(line)
	}
	values[DimNodesName] = strings.Join(names, " ")
}

// InfoStage runs the detail command for every discovered node.
// Reads nodesnumber and nodesname. Writes nodesinfo.
type InfoStage struct {
	Command string
}

// Name returns the stage identifier.
func (s InfoStage) Name() string { return "info" }

// Resolve appends the discovered node names to the base command. It skips
// when discovery found no nodes.
func (s InfoStage) Resolve(values models.Values) (string, bool) {
	n, ok := values.Int(DimNodesNumber)
	if !ok || n == 0 {
		return "", false
	}
	names, _ := values.String(DimNodesName)
	return s.Command + " " + names, true
}

// Consume flattens the whole output into a single line of text. Each
// terminator, "\n" or "\r\n", becomes one space.
func (s InfoStage) Consume(lines []string, values models.Values) {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(trimTerminator(line))
		if strings.HasSuffix(line, "\n") {
			b.WriteByte(' ')
		}
	}
	values[DimNodesInfo] = b.String()
}

// Stages returns the discovery pipeline in execution order.
func Stages(listCommand, infoCommand string) []pipeline.Stage {
	return []pipeline.Stage{
		ListStage{Command: listCommand},
		InfoStage{Command: infoCommand},
	}
}

func trimTerminator(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
