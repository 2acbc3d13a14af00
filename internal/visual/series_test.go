package visual

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"tgdash/internal/stats"
	"tgdash/pkg/model"
)

func testTimeStats() *model.TimeStatistics {
	return &model.TimeStatistics{
		TxRateL1: model.TimeSeries{
			"0": {"1": 100, "0.5": 50, "2": 200},
			"5": {"1": 999},
		},
		RxRateL1: model.TimeSeries{
			"1": {"1": 90, "2": 180},
		},
		PacketLoss: model.TimeSeries{
			"1": {"1": 3, "2": 4},
		},
		RTT: model.TimeSeries{
			"1": {"1": 2000, "2": 4000},
			"3": {"2": 6000},
		},
	}
}

func TestRateSeriesSumsMappedPortsInTimeOrder(t *testing.T) {
	m := model.PortMapping{"0": "1", "3": "1"}
	b := RateSeries(testTimeStats(), m)
	if b.Metric != MetricRate || len(b.Series) != 2 {
		t.Fatalf("unexpected bundle: %+v", b)
	}
	tx := b.Series[0]
	if !reflect.DeepEqual(tx.X, []float64{0.5, 1, 2}) {
		t.Fatalf("tx x=%v", tx.X)
	}
	if !reflect.DeepEqual(tx.Values, []float64{50, 100, 200}) {
		t.Fatalf("tx values=%v", tx.Values)
	}
	rx := b.Series[1]
	if !reflect.DeepEqual(rx.Values, []float64{90, 180}) {
		t.Fatalf("rx values=%v", rx.Values)
	}
}

func TestRTTSeriesAveragesReportingPorts(t *testing.T) {
	m := model.PortMapping{"0": "1", "2": "3"}
	b := RTTSeries(testTimeStats(), m)
	s := b.Series[0]
	// bucket 1: only port 1 reports, bucket 2: ports 1 and 3.
	if !reflect.DeepEqual(s.Values, []float64{2, 5}) {
		t.Fatalf("rtt values=%v", s.Values)
	}
	if s.Labels[0] != "1s" {
		t.Fatalf("label=%q", s.Labels[0])
	}
}

func TestChartsOnNilTimeStatistics(t *testing.T) {
	for _, b := range Charts(nil, model.PortMapping{"0": "1"}) {
		for _, s := range b.Series {
			if s.Len() != 0 {
				t.Fatalf("%s: expected empty series", b.Name)
			}
		}
	}
}

func TestFrameBars(t *testing.T) {
	totals := map[string]stats.TxRx{"unicast": {TX: 10, RX: 8}}
	tx, rx := FrameTypeBars(totals, []string{"multicast", "unicast"})
	if !reflect.DeepEqual(tx.Values, []float64{0, 10}) || !reflect.DeepEqual(rx.Values, []float64{0, 8}) {
		t.Fatalf("tx=%v rx=%v", tx.Values, rx.Values)
	}

	sizes := FrameSizeBars("TX", []stats.BucketTotal{{Low: 64, High: 64, Packets: 5}, {Low: 65, High: 127, Packets: 1}})
	if !reflect.DeepEqual(sizes.Labels, []string{"64", "65-127"}) {
		t.Fatalf("labels=%v", sizes.Labels)
	}
}

func TestRenderLine(t *testing.T) {
	var buf bytes.Buffer
	b := RateSeries(testTimeStats(), model.PortMapping{"0": "1"})
	if err := RenderLine(&buf, b); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("expected PNG output")
	}

	buf.Reset()
	single := Bundle{Metric: MetricLoss, Name: "packet_loss", Series: []Series{{Name: "x", X: []float64{1}, Values: []float64{1}, Labels: []string{"1s"}}}}
	if err := RenderLine(&buf, single); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestRenderBarsAllZero(t *testing.T) {
	var buf bytes.Buffer
	s := FrameSizeBars("RX", stats.FrameSizeTotals(nil, nil, model.RX))
	if err := RenderBars(&buf, "RX frame sizes", s); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("empty output")
	}
}
