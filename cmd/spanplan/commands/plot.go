package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/spanplan/spanplan/pkg/planner"
)

// writeFrontierChart renders the live frontier as an HTML line chart: path
// endpoint on the X axis, minimal cumulative cost on the Y axis.
func writeFrontierChart(path string, total uint32, frontier planner.Store) error {
	nodes := make([]planner.PathNode, 0, frontier.Len())

	frontier.Descending(func(node planner.PathNode) bool {
		nodes = append(nodes, node)

		return true
	})

	// Descending visit order, ascending axis.
	xLabels := make([]string, 0, len(nodes))
	data := make([]opts.LineData, 0, len(nodes))

	for idx := len(nodes) - 1; idx >= 0; idx-- {
		xLabels = append(xLabels, strconv.FormatUint(uint64(nodes[idx].Endpoint), 10))
		data = append(data, opts.LineData{Value: nodes[idx].Cost})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Chunk Cover Frontier",
			Subtitle: fmt.Sprintf("Minimal cost per reachable endpoint, target %d", total),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "Endpoint (bytes)",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "Cost (seconds)",
		}),
	)
	line.SetXAxis(xLabels)
	line.AddSeries("frontier", data)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	defer file.Close()

	err = line.Render(file)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}
