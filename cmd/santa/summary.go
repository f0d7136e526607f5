package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/lwmacct/251219-go-pkg-santa/pkg/santa"
)

// renderSummary 把运行报告渲染为表格
func renderSummary(r *santa.Report) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(fmt.Sprintf("Workshop summary (%s)", r.Elapsed.Round(time.Millisecond)))

	tw.AppendHeader(table.Row{"Group", "Role", "Priority", "Quorum", "Workers", "Teams", "Served", "Failed", "Mean action"})
	for _, g := range r.Groups {
		tw.AppendRow(table.Row{
			g.Topic,
			string(g.Role),
			g.Priority.String(),
			strconv.Itoa(g.Quorum),
			strconv.Itoa(g.Population),
			strconv.FormatUint(g.Teams, 10),
			strconv.FormatUint(g.Served, 10),
			strconv.FormatUint(g.Failed, 10),
			g.MeanAction.Round(time.Millisecond).String(),
		})
	}

	status := "clean"
	if !r.Clean {
		status = "forced"
	}
	tw.AppendFooter(table.Row{"Santa", "", "", "", "", "", strconv.FormatInt(r.Santa.Handled, 10), strconv.FormatInt(r.Santa.Errors, 10), "shutdown: " + status})

	configs := make([]table.ColumnConfig, 0, 9)
	for i := 1; i <= 9; i++ {
		align := text.AlignRight
		if i <= 3 {
			align = text.AlignLeft
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i,
			Align:       align,
			AlignHeader: text.AlignLeft,
			AlignFooter: align,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
