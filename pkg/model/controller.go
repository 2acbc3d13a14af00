package model

import "encoding/json"

type Port struct {
	PID      int    `json:"pid"`
	Port     int    `json:"port"`
	Channel  int    `json:"channel"`
	Loopback string `json:"loopback"`
	Status   bool   `json:"status"`
	Speed    string `json:"speed"`
	FEC      string `json:"fec"`
	AutoNeg  string `json:"auto_neg"`
}

type OnlineStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Tables is the raw dump of the data plane tables; its layout is owned by the controller.
type Tables map[string]json.RawMessage

type ProfileRequest struct {
	Kind       ProfileKind `json:"profile"`
	Tests      []RFCTest   `json:"tests,omitempty"`
	TrafficGen *TrafficGen `json:"traffic_gen,omitempty"`
}

// ProfileResults are keyed by frame size in bytes.
type ProfileResults struct {
	Throughput    map[string]float64            `json:"throughput,omitempty"`      // Mbit/s
	Latency       map[string]float64            `json:"latency,omitempty"`         // ns
	FrameLossRate map[string]map[string]float64 `json:"frame_loss_rate,omitempty"` // offered load % -> loss %
	BackToBack    map[string]float64            `json:"back_to_back,omitempty"`    // frames
	IMIX          map[string]float64            `json:"imix,omitempty"`            // share of traffic %
}

type ProfileStatus struct {
	Running     bool           `json:"running"`
	Kind        ProfileKind    `json:"profile"`
	CurrentTest string         `json:"current_test"`
	Results     ProfileResults `json:"results"`
}
