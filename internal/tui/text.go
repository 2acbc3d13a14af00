package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rivo/tview"

	"tgdash/internal/controller"
	"tgdash/internal/format"
	"tgdash/internal/poller"
	"tgdash/internal/report"
	"tgdash/internal/stats"
	"tgdash/internal/visual"
	"tgdash/pkg/model"
)

// StatusText is the header line: controller state, selected test and last update.
func StatusText(snap poller.Snapshot, number string) string {
	var b strings.Builder
	if snap.Online {
		b.WriteString("[green]ONLINE[white]")
	} else {
		b.WriteString("[red]OFFLINE[white]")
	}
	fmt.Fprintf(&b, "  [yellow]Test:[white] %s", number)
	if def, ok := snap.Tests[number]; ok && def.Name != "" {
		fmt.Fprintf(&b, " (%s)", tview.Escape(def.Name))
	}
	fmt.Fprintf(&b, " of %d", len(snap.Tests))
	if !snap.Updated.IsZero() {
		fmt.Fprintf(&b, "  [yellow]Updated:[white] %s", snap.Updated.Format(time.TimeOnly))
	}
	if msg := controller.UserMessage(snap.LastError); msg != "" {
		fmt.Fprintf(&b, "\n[red]%s[white]", msg)
	}
	return b.String()
}

// SummaryText lays out the aggregated metrics in aligned columns.
func SummaryText(s stats.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[yellow]%-16s %16s %16s[white]\n", "Metric", "TX", "RX")
	for _, r := range report.SummaryRows(s) {
		fmt.Fprintf(&b, "%-16s %16s %16s\n", r[0], r[1], r[2])
	}
	return strings.TrimRight(b.String(), "\n")
}

// PortText shows the per-port counters behind the totals.
func PortText(s *model.Statistics, m model.PortMapping) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[yellow]%-6s %-3s %16s %12s %12s %12s[white]\n", "Port", "Dir", "Rate L1", "IAT mean", "RTT mean", "Lost")
	if s == nil {
		b.WriteString("no statistics")
		return b.String()
	}
	for _, p := range m.TXPorts() {
		fmt.Fprintf(&b, "%-6s %-3s %16s %12s %12s %12s\n", p, "TX",
			format.Bits(s.TxRateL1[p], 2), format.Time(s.IATs[p].Side(model.TX).Mean, 2), "", "")
	}
	for _, p := range m.RXPorts() {
		fmt.Fprintf(&b, "%-6s %-3s %16s %12s %12s %12s\n", p, "RX",
			format.Bits(s.RxRateL1[p], 2), format.Time(s.IATs[p].Side(model.RX).Mean, 2),
			format.Time(s.RTTs[p].Mean, 2), format.Count(s.PacketLoss[p]))
	}
	return strings.TrimRight(b.String(), "\n")
}

var blocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws the last width values scaled to the largest of them.
func Sparkline(values []float64, width int) string {
	if width <= 0 || len(values) == 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	maxV := 0.0
	for _, v := range values {
		maxV = math.Max(maxV, v)
	}
	out := make([]rune, len(values))
	for i, v := range values {
		idx := 0
		if maxV > 0 && v > 0 {
			idx = int(math.Round(v / maxV * float64(len(blocks)-1)))
		}
		out[i] = blocks[idx]
	}
	return string(out)
}

// HistoryText plots the rate series of a test, one line per direction.
func HistoryText(ts *model.TimeStatistics, m model.PortMapping, width int) string {
	var b strings.Builder
	for _, s := range visual.RateSeries(ts, m).Series {
		last := 0.0
		if n := s.Len(); n > 0 {
			last = s.Values[n-1]
		}
		color := "[green]"
		if s.Name == "RX" {
			color = "[aqua]"
		}
		fmt.Fprintf(&b, "%s%-3s[white] %s %s\n", color, s.Name, Sparkline(s.Values, width), format.Bits(last, 2))
	}
	return strings.TrimRight(b.String(), "\n")
}
