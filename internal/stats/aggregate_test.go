package stats

import (
	"math"
	"testing"

	"tgdash/pkg/model"
)

func snapshot() *model.Statistics {
	return &model.Statistics{
		FrameTypeData: map[string]model.FrameTypeSide{
			"1": {TX: map[string]uint64{"unicast": 100, "total": 120}, RX: map[string]uint64{"unicast": 7}},
			"2": {TX: map[string]uint64{"unicast": 50}, RX: map[string]uint64{"unicast": 98, "total": 118}},
			"3": {TX: map[string]uint64{"unicast": 1000}, RX: map[string]uint64{"unicast": 1000}},
			"4": {},
		},
		FrameSize: map[string]model.FrameSizeSide{
			"1": {TX: []model.FrameSizeBucket{{Low: 64, High: 64, Packets: 100}}},
		},
		TxRateL1: map[string]float64{"1": 10e9, "3": 99e9},
		RxRateL1: map[string]float64{"2": 9.5e9, "3": 99e9},
		PacketLoss: map[string]uint64{
			"1": 5, "2": 2, "3": 1000,
		},
		OutOfOrder: map[string]uint64{"2": 3},
	}
}

func TestFrameTypeTotals(t *testing.T) {
	s := snapshot()
	m := model.PortMapping{"1": "2"}
	got := FrameTypeTotals(s, m, "unicast")
	if got.TX != 100 || got.RX != 98 {
		t.Fatalf("got %+v", got)
	}
	if again := FrameTypeTotals(s, m, "unicast"); again != got {
		t.Fatalf("not deterministic: %+v vs %+v", again, got)
	}
	if missing := FrameTypeTotals(s, m, "broadcast"); missing != (TxRx{}) {
		t.Fatalf("missing type=%+v", missing)
	}
	if nilSnap := FrameTypeTotals(nil, m, "unicast"); nilSnap != (TxRx{}) {
		t.Fatalf("nil snapshot=%+v", nilSnap)
	}
}

func TestFrameTypeTotalsInsertionOrder(t *testing.T) {
	a := &model.Statistics{FrameTypeData: map[string]model.FrameTypeSide{}}
	b := &model.Statistics{FrameTypeData: map[string]model.FrameTypeSide{}}
	ports := []string{"1", "2", "5", "6"}
	for i, p := range ports {
		a.FrameTypeData[p] = model.FrameTypeSide{TX: map[string]uint64{"ipv4": uint64(i + 1)}, RX: map[string]uint64{"ipv4": uint64(10 * (i + 1))}}
	}
	for i := len(ports) - 1; i >= 0; i-- {
		b.FrameTypeData[ports[i]] = a.FrameTypeData[ports[i]]
	}
	m := model.PortMapping{"1": "2", "5": "6"}
	if FrameTypeTotals(a, m, "ipv4") != FrameTypeTotals(b, m, "ipv4") {
		t.Fatalf("result depends on insertion order")
	}
}

func TestFrameSizeBucketTotal(t *testing.T) {
	s := snapshot()
	m := model.PortMapping{"1": "2"}
	if got := FrameSizeBucketTotal(s, m, model.TX, 64, 64); got != 100 {
		t.Fatalf("tx=%d", got)
	}
	if got := FrameSizeBucketTotal(s, m, model.RX, 64, 64); got != 0 {
		t.Fatalf("rx=%d", got)
	}
	if got := FrameSizeBucketTotal(s, model.PortMapping{"5": "1"}, model.TX, 64, 64); got != 0 {
		t.Fatalf("unmapped tx=%d", got)
	}
}

func TestWeightedRTT(t *testing.T) {
	s := &model.Statistics{RTTs: map[string]model.RTTSummary{
		"2": {Mean: 10, Min: 4, Max: 30, Jitter: 1, Current: 10, N: 5},
		"4": {Mean: 20, Min: 6, Max: 50, Jitter: 3, Current: 22, N: 15},
		"9": {Mean: 1000, Min: 1, Max: 5000, N: 100},
	}}
	m := model.PortMapping{"1": "2", "3": "4"}
	got := WeightedRTT(s, m)
	if got.Mean != 17.5 {
		t.Fatalf("mean=%v", got.Mean)
	}
	if got.Min != 4 || got.Max != 50 || got.N != 20 {
		t.Fatalf("got %+v", got)
	}
	if math.Abs(got.Jitter-2.5) > 1e-9 {
		t.Fatalf("jitter=%v", got.Jitter)
	}
	if math.Abs(got.Current-19) > 1e-9 {
		t.Fatalf("current=%v", got.Current)
	}
}

func TestWeightedRTTNoMatch(t *testing.T) {
	s := &model.Statistics{RTTs: map[string]model.RTTSummary{"7": {Mean: 10, Min: 1, Max: 2, N: 3}}}
	for _, m := range []model.PortMapping{{}, {"7": "8"}, nil} {
		if got := WeightedRTT(s, m); got != (model.RTTSummary{}) {
			t.Fatalf("mapping %v: got %+v", m, got)
		}
	}
}

func TestWeightedIAT(t *testing.T) {
	s := &model.Statistics{IATs: map[string]model.IATSide{
		"1": {TX: model.IATSummary{Mean: 100, Std: 2, MAE: 0.5, N: 10}, RX: model.IATSummary{Mean: 7, N: 1}},
		"3": {TX: model.IATSummary{Mean: 200, Std: 4, MAE: 0, N: 30}},
		"5": {TX: model.IATSummary{Mean: 900, N: 1000, MAE: 9}},
	}}
	m := model.PortMapping{"1": "2", "3": "4"}
	got := WeightedIAT(model.TX, s, m)
	if got.N != 40 || got.Mean != 175 || got.Std != 3.5 {
		t.Fatalf("got %+v", got)
	}
	// port 3 reports no MAE so only port 1 counts
	if got.MAE != 0.5 {
		t.Fatalf("mae=%v", got.MAE)
	}

	if empty := WeightedIAT(model.TX, s, model.PortMapping{}); empty != (model.IATSummary{}) {
		t.Fatalf("empty mapping=%+v", empty)
	}
	if rx := WeightedIAT(model.RX, s, m); rx != (model.IATSummary{}) {
		t.Fatalf("rx=%+v", rx)
	}
}

func TestLostAndOutOfOrder(t *testing.T) {
	s := snapshot()
	m := model.PortMapping{"1": "2"}
	if got := LostPackets(s, m); got != 2 {
		t.Fatalf("lost=%d", got)
	}
	if got := OutOfOrderPackets(s, m); got != 3 {
		t.Fatalf("ooo=%d", got)
	}
	if got := LostPackets(nil, m); got != 0 {
		t.Fatalf("nil lost=%d", got)
	}
}
