package report

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"tgdash/internal/stats"
	"tgdash/pkg/model"
)

func sampleStats() *model.Statistics {
	return &model.Statistics{
		FrameSize: map[string]model.FrameSizeSide{
			"1": {TX: []model.FrameSizeBucket{{Low: 64, High: 64, Packets: 100}, {Low: 65, High: 127, Packets: 7}}},
			"2": {RX: []model.FrameSizeBucket{{Low: 64, High: 64, Packets: 98}}},
		},
		FrameTypeData: map[string]model.FrameTypeSide{
			"1": {TX: map[string]uint64{"unicast": 107, "total": 107}},
			"2": {RX: map[string]uint64{"unicast": 98, "total": 98, "ipv4": 98}},
		},
		TxRateL1: map[string]float64{"1": 1e9},
		RxRateL1: map[string]float64{"2": 9.8e8},
		RTTs: map[string]model.RTTSummary{
			"2": {Mean: 1500, Min: 900, Max: 4000, Jitter: 30, Current: 1400, N: 50},
		},
		PacketLoss:  map[string]uint64{"2": 2},
		OutOfOrder:  map[string]uint64{"2": 1},
		ElapsedTime: 12,
	}
}

func sampleTimeStats() *model.TimeStatistics {
	return &model.TimeStatistics{
		TxRateL1: model.TimeSeries{"1": {"1": 1e9, "2": 1e9}},
		RxRateL1: model.TimeSeries{"2": {"1": 9e8, "2": 9.8e8}},
		RTT:      model.TimeSeries{"2": {"1": 1500, "2": 1600}},
	}
}

func sampleDataset() Dataset {
	return Dataset{
		Tests:     model.TestList{"1": {Mode: model.ModeCBR, Name: "baseline", PortTxRxMapping: model.PortMapping{"1": "2"}}},
		Stats:     sampleStats(),
		TimeStats: sampleTimeStats(),
	}
}

// blocks groups the CSV rows of one test by block title.
func blocks(t *testing.T, data []byte) map[string][][]string {
	t.Helper()
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	recs, err := r.ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	out := make(map[string][][]string)
	cur := ""
	for _, rec := range recs {
		switch rec[0] {
		case BlockSummary, BlockFrameTypes, BlockFrameSizes, BlockEthernetTypes:
			cur = rec[0]
			continue
		case BlockTimeSeries:
			cur = rec[0] + "/" + rec[1]
			continue
		}
		out[cur] = append(out[cur], rec)
	}
	return out
}

func cell(t *testing.T, rows [][]string, key string, col int) uint64 {
	t.Helper()
	for _, r := range rows {
		if r[0] == key {
			v, err := strconv.ParseUint(r[col], 10, 64)
			if err != nil {
				t.Fatalf("%s col %d: %v", key, col, err)
			}
			return v
		}
	}
	t.Fatalf("row %q not found", key)
	return 0
}

func TestCSVRoundTripMatchesAggregator(t *testing.T) {
	d := sampleDataset()
	var buf bytes.Buffer
	n, err := NewCSVBuilder(zap.NewNop()).Build(&buf, d)
	if err != nil || n != 1 {
		t.Fatalf("build: n=%d err=%v", n, err)
	}
	b := blocks(t, buf.Bytes())
	m := d.Tests["1"].PortTxRxMapping

	for _, typ := range model.FrameTypes {
		want := stats.FrameTypeTotals(d.Stats, m, typ)
		if got := cell(t, b[BlockFrameTypes], typ, 1); got != want.TX {
			t.Fatalf("%s tx: got %d want %d", typ, got, want.TX)
		}
		if got := cell(t, b[BlockFrameTypes], typ, 2); got != want.RX {
			t.Fatalf("%s rx: got %d want %d", typ, got, want.RX)
		}
	}
	for _, typ := range model.EthernetTypes {
		want := stats.FrameTypeTotals(d.Stats, m, typ)
		if got := cell(t, b[BlockEthernetTypes], typ, 2); got != want.RX {
			t.Fatalf("%s rx: got %d want %d", typ, got, want.RX)
		}
	}
	if got := cell(t, b[BlockFrameSizes], "64", 1); got != stats.FrameSizeBucketTotal(d.Stats, m, model.TX, 64, 64) {
		t.Fatalf("64 tx: %d", got)
	}
	if got := cell(t, b[BlockFrameSizes], "64", 2); got != 98 {
		t.Fatalf("64 rx: %d", got)
	}
	if got := cell(t, b[BlockSummary], "Lost packets", 2); got != stats.LostPackets(d.Stats, m) {
		t.Fatalf("lost: %d", got)
	}
	if got := cell(t, b[BlockSummary], "RTT samples", 2); got != stats.WeightedRTT(d.Stats, m).N {
		t.Fatalf("rtt n: %d", got)
	}

	rtt := b[BlockTimeSeries+"/Mean RTT (µs)"]
	if len(rtt) != 3 || rtt[1][1] != "1.5" {
		t.Fatalf("rtt block: %v", rtt)
	}
}

func TestCSVBlockOrder(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewCSVBuilder(nil).Build(&buf, sampleDataset()); err != nil {
		t.Fatal(err)
	}
	text := buf.String()
	order := []string{"Test,1,baseline", BlockSummary, BlockFrameTypes, BlockFrameSizes, BlockEthernetTypes, BlockTimeSeries}
	last := -1
	for _, s := range order {
		i := strings.Index(text, "\n"+s)
		if s == order[0] {
			i = strings.Index(text, s)
		}
		if i <= last {
			t.Fatalf("%q out of order (at %d, previous %d)", s, i, last)
		}
		last = i
	}
}

func TestCSVSkipsTestsWithoutStatistics(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := sampleDataset()
	d.Tests["7"] = model.TrafficGen{Mode: model.ModeCBR}

	var buf bytes.Buffer
	n, err := NewCSVBuilder(zap.New(core)).Build(&buf, d)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 test written, got %d", n)
	}
	if strings.Contains(buf.String(), "Test,7") {
		t.Fatalf("test 7 should be skipped")
	}
	if logs.FilterField(zap.String("test", "7")).Len() != 1 {
		t.Fatalf("expected a warning for test 7, got %v", logs.All())
	}
}

func TestTextTable(t *testing.T) {
	d := sampleDataset()
	var buf bytes.Buffer
	TextTable(&buf, stats.Summarize(d.Stats, d.Tests["1"].PortTxRxMapping, nil))
	out := buf.String()
	for _, want := range []string{"RATE L1", "1.00 Gbit/s", "Frames unicast", "107"} {
		if !strings.Contains(strings.ToUpper(out), strings.ToUpper(want)) {
			t.Fatalf("missing %q in\n%s", want, out)
		}
	}
}

func TestPortTable(t *testing.T) {
	var buf bytes.Buffer
	PortTable(&buf, []model.Port{{PID: 1, Port: 1, Status: true, Speed: "100G"}})
	if !strings.Contains(buf.String(), "UP") || !strings.Contains(buf.String(), "100G") {
		t.Fatalf("unexpected table:\n%s", buf.String())
	}
}
