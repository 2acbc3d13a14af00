package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Direction selects the transmit or receive side of a port.
type Direction int

const (
	TX Direction = iota
	RX
)

func (d Direction) String() string {
	switch d {
	case TX:
		return "tx"
	case RX:
		return "rx"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection accepts "tx" or "rx" in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "tx":
		return TX, nil
	case "rx":
		return RX, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// GenerationMode is the controller's traffic generation mode.
type GenerationMode int

const (
	ModeCBR     GenerationMode = 1
	ModeMpps    GenerationMode = 2
	ModePoisson GenerationMode = 3
	ModeMonitor GenerationMode = 4
)

func (m GenerationMode) String() string {
	switch m {
	case ModeCBR:
		return "CBR"
	case ModeMpps:
		return "Mpps"
	case ModePoisson:
		return "Poisson"
	case ModeMonitor:
		return "Monitor"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func (m GenerationMode) Valid() bool {
	return m >= ModeCBR && m <= ModeMonitor
}

// Encapsulation is the header stack placed between Ethernet and IP.
type Encapsulation int

const (
	EncapNone Encapsulation = iota
	EncapVLAN
	EncapQinQ
	EncapMPLS
	EncapSRv6
)

func (e Encapsulation) String() string {
	switch e {
	case EncapNone:
		return "None"
	case EncapVLAN:
		return "VLAN"
	case EncapQinQ:
		return "QinQ"
	case EncapMPLS:
		return "MPLS"
	case EncapSRv6:
		return "SRv6"
	}
	return fmt.Sprintf("Encapsulation(%d)", int(e))
}

func (e Encapsulation) Valid() bool {
	return e >= EncapNone && e <= EncapSRv6
}

// ProfileKind identifies a predefined multi-step test sequence.
type ProfileKind int

const (
	ProfileRFC2544 ProfileKind = iota
	ProfileIMIX
)

func (p ProfileKind) String() string {
	switch p {
	case ProfileRFC2544:
		return "RFC2544"
	case ProfileIMIX:
		return "IMIX"
	}
	return fmt.Sprintf("Profile(%d)", int(p))
}

// RFCTest is one RFC2544 measurement category. It travels as a string on the wire.
type RFCTest int

const (
	RFCThroughput RFCTest = iota
	RFCLatency
	RFCFrameLoss
	RFCBackToBack
)

var rfcTestNames = [...]string{
	RFCThroughput: "throughput",
	RFCLatency:    "latency",
	RFCFrameLoss:  "frame_loss_rate",
	RFCBackToBack: "back_to_back",
}

// AllRFCTests lists the categories in report order.
var AllRFCTests = []RFCTest{RFCThroughput, RFCLatency, RFCFrameLoss, RFCBackToBack}

func (t RFCTest) String() string {
	if t >= 0 && int(t) < len(rfcTestNames) {
		return rfcTestNames[t]
	}
	return fmt.Sprintf("RFCTest(%d)", int(t))
}

// Title is the human readable section name used in reports.
func (t RFCTest) Title() string {
	switch t {
	case RFCThroughput:
		return "Throughput"
	case RFCLatency:
		return "Latency"
	case RFCFrameLoss:
		return "Frame Loss Rate"
	case RFCBackToBack:
		return "Back-to-Back Frames"
	}
	return t.String()
}

func ParseRFCTest(s string) (RFCTest, error) {
	for i, n := range rfcTestNames {
		if n == s {
			return RFCTest(i), nil
		}
	}
	return 0, fmt.Errorf("unknown RFC2544 test %q", s)
}

func (t RFCTest) MarshalJSON() ([]byte, error) {
	if int(t) < 0 || int(t) >= len(rfcTestNames) {
		return nil, fmt.Errorf("invalid RFC2544 test %d", int(t))
	}
	return json.Marshal(t.String())
}

func (t *RFCTest) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseRFCTest(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
