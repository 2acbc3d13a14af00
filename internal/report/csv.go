package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"

	"tgdash/internal/stats"
	"tgdash/internal/visual"
	"tgdash/pkg/model"
)

// Block titles. Rows below a title belong to it until the next title.
const (
	BlockSummary       = "Summary"
	BlockFrameTypes    = "Frame types"
	BlockFrameSizes    = "Frame sizes"
	BlockEthernetTypes = "Ethernet types"
	BlockTimeSeries    = "Time series"
)

// CSVBuilder writes one block group per test. Cells carry raw numbers in base
// units so the file can be re-read without parsing unit suffixes.
type CSVBuilder struct {
	log *zap.Logger
}

func NewCSVBuilder(log *zap.Logger) *CSVBuilder {
	return &CSVBuilder{log: orNop(log)}
}

// Build writes the report for every test in d and returns how many were written.
func (b *CSVBuilder) Build(w io.Writer, d Dataset) (int, error) {
	cw := csv.NewWriter(w)
	results := collect(b.log, d)
	for i, r := range results {
		if i > 0 {
			_ = cw.Write([]string{})
		}
		writeTest(cw, r)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("write csv: %w", err)
	}
	return len(results), nil
}

func writeTest(cw *csv.Writer, r testResult) {
	s := r.Summary
	_ = cw.Write([]string{"Test", r.Number, r.Def.Name})

	_ = cw.Write([]string{BlockSummary})
	_ = cw.Write([]string{"Metric", "TX", "RX"})
	rows := [][]string{
		{"Rate L1 (bit/s)", ftoa(s.Rates.TxL1), ftoa(s.Rates.RxL1)},
		{"Rate L2 (bit/s)", ftoa(s.Rates.TxL2), ftoa(s.Rates.RxL2)},
		{"IAT mean (ns)", ftoa(s.IATTx.Mean), ftoa(s.IATRx.Mean)},
		{"IAT std (ns)", ftoa(s.IATTx.Std), ftoa(s.IATRx.Std)},
		{"IAT MAE (ns)", ftoa(s.IATTx.MAE), ftoa(s.IATRx.MAE)},
		{"IAT samples", utoa(s.IATTx.N), utoa(s.IATRx.N)},
		{"RTT mean (ns)", "", ftoa(s.RTT.Mean)},
		{"RTT min (ns)", "", ftoa(s.RTT.Min)},
		{"RTT max (ns)", "", ftoa(s.RTT.Max)},
		{"RTT jitter (ns)", "", ftoa(s.RTT.Jitter)},
		{"RTT current (ns)", "", ftoa(s.RTT.Current)},
		{"RTT samples", "", utoa(s.RTT.N)},
		{"Lost packets", "", utoa(s.Lost)},
		{"Out of order packets", "", utoa(s.OutOfOrder)},
		{"Packet loss (%)", "", ftoa(s.LossPercent)},
		{"Elapsed (s)", ftoa(s.Elapsed), ""},
	}
	for _, row := range rows {
		_ = cw.Write(row)
	}

	_ = cw.Write([]string{BlockFrameTypes})
	_ = cw.Write([]string{"Type", "TX", "RX"})
	writeTotals(cw, s.FrameTypes, model.FrameTypes)

	_ = cw.Write([]string{BlockFrameSizes})
	_ = cw.Write([]string{"Size", "TX", "RX"})
	for i, tx := range s.TxFrameSizes {
		var rx uint64
		if i < len(s.RxFrameSizes) {
			rx = s.RxFrameSizes[i].Packets
		}
		_ = cw.Write([]string{visual.BucketLabel(tx.Low, tx.High), utoa(tx.Packets), utoa(rx)})
	}

	_ = cw.Write([]string{BlockEthernetTypes})
	_ = cw.Write([]string{"Type", "TX", "RX"})
	writeTotals(cw, s.EthernetTypes, model.EthernetTypes)

	for _, b := range r.Charts {
		for _, series := range b.Series {
			_ = cw.Write([]string{BlockTimeSeries, seriesTitle(b, series)})
			_ = cw.Write([]string{"Elapsed (s)", "Value"})
			for i, v := range series.Values {
				_ = cw.Write([]string{ftoa(series.X[i]), ftoa(v)})
			}
		}
	}
}

func writeTotals(cw *csv.Writer, totals map[string]stats.TxRx, names []string) {
	for _, n := range names {
		t := totals[n]
		_ = cw.Write([]string{n, utoa(t.TX), utoa(t.RX)})
	}
}

func seriesTitle(b visual.Bundle, s visual.Series) string {
	switch b.Metric {
	case visual.MetricRate:
		return s.Name + " rate L1 (bit/s)"
	case visual.MetricRTT:
		return "Mean RTT (µs)"
	}
	return b.Title
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func utoa(v uint64) string { return strconv.FormatUint(v, 10) }
