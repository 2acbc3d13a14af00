// Package visual turns aggregated and time-series statistics into chart data
// and renders it to PNG.
package visual

import (
	"sort"
	"strconv"

	"tgdash/internal/format"
	"tgdash/internal/stats"
	"tgdash/pkg/model"
)

// Metric identifies what a chart bundle plots.
type Metric int

const (
	MetricRate Metric = iota
	MetricLoss
	MetricOutOfOrder
	MetricRTT
)

func (m Metric) String() string {
	switch m {
	case MetricRate:
		return "rate"
	case MetricLoss:
		return "packet_loss"
	case MetricOutOfOrder:
		return "out_of_order"
	case MetricRTT:
		return "rtt"
	}
	return "unknown"
}

// Title is the chart heading.
func (m Metric) Title() string {
	switch m {
	case MetricRate:
		return "TX/RX Rate (L1)"
	case MetricLoss:
		return "Packet Loss"
	case MetricOutOfOrder:
		return "Out of Order"
	case MetricRTT:
		return "Mean RTT"
	}
	return "Unknown"
}

// Series is one plotted line. X holds elapsed seconds, Labels their formatted text.
type Series struct {
	Name   string    `json:"name"`
	Labels []string  `json:"labels"`
	X      []float64 `json:"x"`
	Values []float64 `json:"values"`
}

func (s Series) Len() int { return len(s.Values) }

type Bundle struct {
	Metric Metric   `json:"-"`
	Name   string   `json:"metric"`
	Title  string   `json:"title"`
	Series []Series `json:"series"`
}

func newBundle(m Metric, series ...Series) Bundle {
	return Bundle{Metric: m, Name: m.String(), Title: m.Title(), Series: series}
}

// RateSeries plots the summed TX L1 rate of mapped TX ports and RX L1 rate of mapped RX ports.
func RateSeries(ts *model.TimeStatistics, m model.PortMapping) Bundle {
	if ts == nil {
		return newBundle(MetricRate, Series{Name: "TX"}, Series{Name: "RX"})
	}
	return newBundle(MetricRate,
		sumSeries("TX", ts.TxRateL1, m, model.TX),
		sumSeries("RX", ts.RxRateL1, m, model.RX),
	)
}

func LossSeries(ts *model.TimeStatistics, m model.PortMapping) Bundle {
	if ts == nil {
		return newBundle(MetricLoss, Series{Name: "Packet loss"})
	}
	return newBundle(MetricLoss, sumSeries("Packet loss", ts.PacketLoss, m, model.RX))
}

func OutOfOrderSeries(ts *model.TimeStatistics, m model.PortMapping) Bundle {
	if ts == nil {
		return newBundle(MetricOutOfOrder, Series{Name: "Out of order"})
	}
	return newBundle(MetricOutOfOrder, sumSeries("Out of order", ts.OutOfOrder, m, model.RX))
}

// RTTSeries averages the per-port mean RTT of the mapped RX ports reporting at
// each bucket. Values are in microseconds.
func RTTSeries(ts *model.TimeStatistics, m model.PortMapping) Bundle {
	if ts == nil {
		return newBundle(MetricRTT, Series{Name: "RTT"})
	}
	s := collect("RTT", ts.RTT, m, model.RX, func(vals []float64) float64 {
		var sum float64
		for _, v := range vals {
			sum += v
		}
		return sum / float64(len(vals)) / 1000
	})
	return newBundle(MetricRTT, s)
}

// Charts builds every time-series bundle for one test.
func Charts(ts *model.TimeStatistics, m model.PortMapping) []Bundle {
	return []Bundle{
		RateSeries(ts, m),
		LossSeries(ts, m),
		OutOfOrderSeries(ts, m),
		RTTSeries(ts, m),
	}
}

func sumSeries(name string, src model.TimeSeries, m model.PortMapping, d model.Direction) Series {
	return collect(name, src, m, d, func(vals []float64) float64 {
		var sum float64
		for _, v := range vals {
			sum += v
		}
		return sum
	})
}

// collect gathers, per elapsed-second bucket, the values of the ports on side d
// of the mapping. Buckets no relevant port reports are left out.
func collect(name string, src model.TimeSeries, m model.PortMapping, d model.Direction, reduce func([]float64) float64) Series {
	buckets := make(map[string][]float64)
	ports := make([]string, 0, len(src))
	for port := range src {
		if m.Has(d, port) {
			ports = append(ports, port)
		}
	}
	sort.Strings(ports)
	for _, port := range ports {
		for bucket, v := range src[port] {
			buckets[bucket] = append(buckets[bucket], v)
		}
	}

	type point struct {
		key string
		sec float64
	}
	points := make([]point, 0, len(buckets))
	for k := range buckets {
		sec, err := strconv.ParseFloat(k, 64)
		if err != nil {
			continue
		}
		points = append(points, point{k, sec})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].sec < points[j].sec })

	out := Series{
		Name:   name,
		Labels: make([]string, 0, len(points)),
		X:      make([]float64, 0, len(points)),
		Values: make([]float64, 0, len(points)),
	}
	for _, p := range points {
		out.Labels = append(out.Labels, format.Elapsed(p.sec))
		out.X = append(out.X, p.sec)
		out.Values = append(out.Values, reduce(buckets[p.key]))
	}
	return out
}

// FrameTypeBars returns TX and RX bar data over the given type names.
func FrameTypeBars(totals map[string]stats.TxRx, names []string) (tx, rx Series) {
	tx = Series{Name: "TX", Labels: make([]string, 0, len(names)), Values: make([]float64, 0, len(names))}
	rx = Series{Name: "RX", Labels: make([]string, 0, len(names)), Values: make([]float64, 0, len(names))}
	for _, n := range names {
		v := totals[n]
		tx.Labels = append(tx.Labels, n)
		tx.Values = append(tx.Values, float64(v.TX))
		rx.Labels = append(rx.Labels, n)
		rx.Values = append(rx.Values, float64(v.RX))
	}
	return tx, rx
}

// FrameSizeBars labels each bucket with its byte range.
func FrameSizeBars(name string, buckets []stats.BucketTotal) Series {
	out := Series{Name: name, Labels: make([]string, 0, len(buckets)), Values: make([]float64, 0, len(buckets))}
	for _, b := range buckets {
		out.Labels = append(out.Labels, BucketLabel(b.Low, b.High))
		out.Values = append(out.Values, float64(b.Packets))
	}
	return out
}

func BucketLabel(low, high uint32) string {
	if low == high {
		return strconv.FormatUint(uint64(low), 10)
	}
	return strconv.FormatUint(uint64(low), 10) + "-" + strconv.FormatUint(uint64(high), 10)
}
