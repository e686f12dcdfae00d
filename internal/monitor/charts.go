package monitor

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/motion.check/internal/motion/classify"
	"github.com/banshee-data/motion.check/internal/telemetry"
)

// echartsAssetsPrefix is where rendered pages load echarts.min.js from.
const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// VerdictSource is the read side of the verdict store.
type VerdictSource interface {
	RecentVerdicts(ctx context.Context, limit int) ([]telemetry.VerdictRecord, error)
	PassRate(ctx context.Context, since time.Time) (telemetry.PassRateSummary, error)
}

// VerdictChart builds the verdict dashboard: velocity CV against jitter
// ratio for recent verdicts, split by outcome, and a count of failed
// requirements over the summary window.
func VerdictChart(recs []telemetry.VerdictRecord, sum telemetry.PassRateSummary) *components.Page {
	passPts := make([]opts.ScatterData, 0, len(recs))
	failPts := make([]opts.ScatterData, 0, len(recs))
	for _, rec := range recs {
		f := rec.Verdict.Features
		pt := opts.ScatterData{Value: []interface{}{f.VelocityCV, f.JitterRatio, f.SampleCount}}
		if rec.Verdict.Pass {
			passPts = append(passPts, pt)
		} else {
			failPts = append(failPts, pt)
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Verdicts", Width: "900px", Height: "600px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Recent verdicts", Subtitle: fmt.Sprintf("pass=%d fail=%d", len(passPts), len(failPts))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "velocity CV", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "jitter ratio", NameLocation: "middle", NameGap: 40}),
	)
	scatter.AddSeries("pass", passPts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#35b779"}))
	scatter.AddSeries("fail", failPts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff5252"}))

	names := make([]string, 0, len(sum.Failed))
	for name := range sum.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	counts := make([]opts.BarData, len(names))
	for i, name := range names {
		counts[i] = opts.BarData{Value: sum.Failed[name]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Failed requirements",
			Subtitle: fmt.Sprintf("since %s total=%d pass rate=%.1f%% model=%s", sum.Since.UTC().Format(time.RFC3339), sum.Total, sum.Rate*100, classify.ModelVersion),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).
		AddSeries("failed", counts,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(scatter, bar)
	return page
}

// RenderVerdictChart loads recent verdicts from src and writes the
// dashboard as HTML.
func RenderVerdictChart(ctx context.Context, w io.Writer, src VerdictSource, limit int, since time.Time) error {
	recs, err := src.RecentVerdicts(ctx, limit)
	if err != nil {
		return err
	}
	sum, err := src.PassRate(ctx, since)
	if err != nil {
		return err
	}
	return VerdictChart(recs, sum).Render(w)
}
