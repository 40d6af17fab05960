// Package report renders a finished run: a JSON summary on disk, a console
// table, and optionally an equity-curve HTML chart.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"papertrader/internal/logger"
	"papertrader/internal/perf"
	"papertrader/internal/portfolio"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/olekukonko/tablewriter"
)

type Reporter struct {
	dir   string
	chart bool
	out   io.Writer
}

func New(dir string, chart bool) *Reporter {
	return &Reporter{dir: dir, chart: chart, out: os.Stdout}
}

// SetOutput redirects the console table (test hook).
func (r *Reporter) SetOutput(w io.Writer) { r.out = w }

// Write renders everything for one run. File failures are reported; the
// console table always prints.
func (r *Reporter) Write(runID string, summary perf.Summary, equity []portfolio.EquityPoint) error {
	r.printTable(runID, summary)
	if r.dir == "" {
		return nil
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := r.writeSummaryJSON(runID, summary); err != nil {
		return err
	}
	if r.chart {
		if err := r.writeEquityChart(runID, equity); err != nil {
			logger.Warnf("report: equity chart failed: %v", err)
		}
	}
	return nil
}

func (r *Reporter) writeSummaryJSON(runID string, summary perf.Summary) error {
	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	path := filepath.Join(r.dir, runID+"_summary.json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	logger.Infof("report: summary written to %s", path)
	return nil
}

func (r *Reporter) printTable(runID string, s perf.Summary) {
	fmt.Fprintf(r.out, "run %s\n", runID)
	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.Append([]string{"Initial Balance", fmt.Sprintf("%.2f", s.InitialBalance)})
	table.Append([]string{"Final Equity", fmt.Sprintf("%.2f", s.FinalEquity)})
	table.Append([]string{"Total Return", fmt.Sprintf("%.2f%%", s.TotalReturnPct)})
	table.Append([]string{"Max Drawdown", fmt.Sprintf("%.2f%%", s.MaxDrawdownPct)})
	table.Append([]string{"Win Rate", fmt.Sprintf("%.2f%%", s.WinRate)})
	table.Append([]string{"Sharpe Ratio", fmt.Sprintf("%.2f", s.SharpeRatio)})
	table.Append([]string{"Profit Factor", formatProfitFactor(s.ProfitFactor)})
	table.Append([]string{"Trades (won)", fmt.Sprintf("%d (%d)", s.TotalTrades, s.WinningTrades)})
	table.Append([]string{"Degraded Cycles", fmt.Sprintf("%d", s.DegradedCycles)})
	table.Render()
}

func formatProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", pf)
}

func (r *Reporter) writeEquityChart(runID string, equity []portfolio.EquityPoint) error {
	if len(equity) == 0 {
		return nil
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Equity Curve", Subtitle: runID}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	xAxis := make([]string, len(equity))
	data := make([]opts.LineData, len(equity))
	for i, point := range equity {
		xAxis[i] = point.Time.UTC().Format("01-02 15:04")
		v, _ := point.Equity.Float64()
		data[i] = opts.LineData{Value: v}
	}
	line.SetXAxis(xAxis)
	line.AddSeries("equity", data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	path := filepath.Join(r.dir, runID+"_equity.html")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := line.Render(f); err != nil {
		return err
	}
	logger.Infof("report: equity chart written to %s", path)
	return nil
}
