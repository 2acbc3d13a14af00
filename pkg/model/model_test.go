package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestPortMappingUnmarshal(t *testing.T) {
	var m PortMapping
	if err := json.Unmarshal([]byte(`{"1": 2, "3": "4", "128": 136}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := PortMapping{"1": "2", "3": "4", "128": "136"}
	if !reflect.DeepEqual(m, want) {
		t.Fatalf("m=%v", m)
	}
	if !m.HasTX("128") || m.HasTX("136") {
		t.Fatalf("HasTX wrong")
	}
	if !m.HasRX("136") || m.HasRX("128") {
		t.Fatalf("HasRX wrong")
	}
	if got := m.TXPorts(); !reflect.DeepEqual(got, []string{"1", "3", "128"}) {
		t.Fatalf("TXPorts=%v", got)
	}

	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["1"] != float64(2) {
		t.Fatalf("numeric port not kept numeric: %v", raw["1"])
	}
}

func TestPortMappingRXPortsDistinct(t *testing.T) {
	m := PortMapping{"1": "5", "2": "5", "3": "10"}
	if got := m.RXPorts(); !reflect.DeepEqual(got, []string{"5", "10"}) {
		t.Fatalf("RXPorts=%v", got)
	}
}

func TestTestListSingleDefinition(t *testing.T) {
	var l TestList
	body := `{"mode": 1, "streams": [], "stream_settings": [], "port_tx_rx_mapping": {"1": 2}}`
	if err := json.Unmarshal([]byte(body), &l); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(l) != 1 {
		t.Fatalf("len=%d", len(l))
	}
	if l["1"].Mode != ModeCBR || l["1"].PortTxRxMapping["1"] != "2" {
		t.Fatalf("test 1=%+v", l["1"])
	}
}

func TestTestListNumbered(t *testing.T) {
	var l TestList
	body := `{"10": {"mode": 2}, "2": {"mode": 3}, "1": {"mode": 1}}`
	if err := json.Unmarshal([]byte(body), &l); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := l.Numbers(); !reflect.DeepEqual(got, []string{"1", "2", "10"}) {
		t.Fatalf("Numbers=%v", got)
	}
	if l["10"].Mode != ModeMpps {
		t.Fatalf("mode=%v", l["10"].Mode)
	}
}

func TestRFCTestJSON(t *testing.T) {
	b, err := json.Marshal([]RFCTest{RFCThroughput, RFCFrameLoss})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `["throughput","frame_loss_rate"]` {
		t.Fatalf("b=%s", b)
	}
	var back []RFCTest
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if len(back) != 2 || back[1] != RFCFrameLoss {
		t.Fatalf("back=%v", back)
	}
	if err := json.Unmarshal([]byte(`["imix"]`), &back); err == nil {
		t.Fatalf("expected error for unknown test")
	}
}

func TestStatisticsForTest(t *testing.T) {
	first := &Statistics{ElapsedTime: 10}
	s := &Statistics{ElapsedTime: 3, PreviousStatistics: map[string]*Statistics{"1": first}}

	if got, ok := s.ForTest("1"); !ok || got != first {
		t.Fatalf("test 1 not resolved to previous statistics")
	}
	if got, ok := s.ForTest("2"); !ok || got != s {
		t.Fatalf("test 2 not resolved to running test")
	}
	if _, ok := s.ForTest("3"); ok {
		t.Fatalf("test 3 should be absent")
	}

	single := &Statistics{}
	if got, ok := single.ForTest("1"); !ok || got != single {
		t.Fatalf("single run not resolved")
	}
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("RX")
	if err != nil || d != RX {
		t.Fatalf("d=%v err=%v", d, err)
	}
	if _, err := ParseDirection("both"); err == nil {
		t.Fatalf("expected error")
	}
}
