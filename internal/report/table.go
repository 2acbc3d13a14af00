package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"tgdash/internal/format"
	"tgdash/internal/stats"
	"tgdash/pkg/model"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetRowLine(false)
	return t
}

// SummaryRows renders s as Metric/TX/RX rows for terminals and the dashboard.
func SummaryRows(s stats.Summary) [][]string {
	rows := [][]string{
		{"Rate L1", format.Bits(s.Rates.TxL1, 2), format.Bits(s.Rates.RxL1, 2)},
		{"Rate L2", format.Bits(s.Rates.TxL2, 2), format.Bits(s.Rates.RxL2, 2)},
		{"IAT mean", format.Time(s.IATTx.Mean, 2), format.Time(s.IATRx.Mean, 2)},
		{"IAT MAE", format.Time(s.IATTx.MAE, 2), format.Time(s.IATRx.MAE, 2)},
		{"RTT mean", "", format.Time(s.RTT.Mean, 2)},
		{"RTT min/max", "", format.Time(s.RTT.Min, 2) + " / " + format.Time(s.RTT.Max, 2)},
		{"RTT jitter", "", format.Time(s.RTT.Jitter, 2)},
		{"Lost", "", format.Count(s.Lost)},
		{"Out of order", "", format.Count(s.OutOfOrder)},
		{"Loss", "", fmt.Sprintf("%.2f %%", s.LossPercent)},
		{"Elapsed", format.Elapsed(s.Elapsed), ""},
	}
	for _, n := range model.FrameTypes {
		v := s.FrameTypes[n]
		rows = append(rows, []string{"Frames " + n, format.Count(v.TX), format.Count(v.RX)})
	}
	return rows
}

// TextTable prints a summary for a terminal.
func TextTable(w io.Writer, s stats.Summary) {
	t := newTable(w, []string{"Metric", "TX", "RX"})
	t.AppendBulk(SummaryRows(s))
	t.Render()
}

// PortTable prints the controller's port list.
func PortTable(w io.Writer, ports []model.Port) {
	t := newTable(w, []string{"PID", "Port", "Channel", "Status", "Speed", "FEC", "Auto-Neg", "Loopback"})
	for _, p := range ports {
		status := "DOWN"
		if p.Status {
			status = "UP"
		}
		t.Append([]string{
			fmt.Sprintf("%d", p.PID),
			fmt.Sprintf("%d", p.Port),
			fmt.Sprintf("%d", p.Channel),
			status,
			p.Speed,
			p.FEC,
			p.AutoNeg,
			p.Loopback,
		})
	}
	t.Render()
}
