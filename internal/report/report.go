// Package report renders test results as CSV, PDF and terminal tables.
package report

import (
	"go.uber.org/zap"

	"tgdash/internal/stats"
	"tgdash/internal/visual"
	"tgdash/pkg/model"
)

// Default download names.
const (
	CSVFileName        = "Network Report.csv"
	PDFFileName        = "MergedNetworkReport.pdf"
	ProfilePDFFileName = "ProfileNetworkReport.pdf"
)

// Dataset is everything a report is built from. TimeStats may be nil.
type Dataset struct {
	Tests     model.TestList
	Stats     *model.Statistics
	TimeStats *model.TimeStatistics
}

type testResult struct {
	Number    string
	Def       model.TrafficGen
	Summary   stats.Summary
	Histogram []model.HistogramBin
	HasHist   bool
	Charts    []visual.Bundle
}

func (r testResult) title() string {
	if r.Def.Name != "" {
		return "Test " + r.Number + ": " + r.Def.Name
	}
	return "Test " + r.Number
}

// collect aggregates every test in ascending order. Tests without statistics
// are skipped and logged.
func collect(log *zap.Logger, d Dataset) []testResult {
	var out []testResult
	for _, n := range d.Tests.Numbers() {
		def := d.Tests[n]
		s, ok := d.Stats.ForTest(n)
		if !ok {
			log.Warn("no statistics for test, skipping", zap.String("test", n))
			continue
		}
		r := testResult{
			Number:  n,
			Def:     def,
			Summary: stats.Summarize(s, def.PortTxRxMapping, &def),
		}
		r.Histogram, r.HasHist = stats.RTTHistogram(s, def.PortTxRxMapping)
		if ts, ok := d.TimeStats.ForTest(n); ok {
			r.Charts = visual.Charts(ts, def.PortTxRxMapping)
		} else {
			log.Debug("no time statistics for test", zap.String("test", n))
		}
		out = append(out, r)
	}
	return out
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
