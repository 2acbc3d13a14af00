package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

type Stream struct {
	StreamID         int           `json:"stream_id"`
	AppID            int           `json:"app_id"`
	FrameSize        int           `json:"frame_size"`
	Encapsulation    Encapsulation `json:"encapsulation"`
	NumberOfLSE      int           `json:"number_of_lse"`
	TrafficRate      float64       `json:"traffic_rate"`
	Burst            int           `json:"burst"`
	VxLAN            bool          `json:"vxlan"`
	IPVersion        int           `json:"ip_version"`
	NumberOfSRv6SIDs int           `json:"number_of_srv6_sids"`
	SRv6IPTunneling  bool          `json:"srv6_ip_tunneling"`
}

// Burst values understood by the controller.
const (
	BurstIATPrecision  = 1
	BurstRatePrecision = 100
)

type VLAN struct {
	VLANID      uint16 `json:"vlan_id"`
	PCP         uint8  `json:"pcp"`
	DEI         uint8  `json:"dei"`
	InnerVLANID uint16 `json:"inner_vlan_id"`
	InnerPCP    uint8  `json:"inner_pcp"`
	InnerDEI    uint8  `json:"inner_dei"`
}

type MPLSEntry struct {
	Label uint32 `json:"label"`
	TC    uint8  `json:"tc"`
	TTL   uint8  `json:"ttl"`
}

type Ethernet struct {
	Src string `json:"eth_src"`
	Dst string `json:"eth_dst"`
}

type IPv4Header struct {
	Src     string `json:"ip_src"`
	Dst     string `json:"ip_dst"`
	ToS     uint8  `json:"ip_tos"`
	SrcMask string `json:"ip_src_mask"`
	DstMask string `json:"ip_dst_mask"`
}

type IPv6Header struct {
	Src          string `json:"ipv6_src"`
	Dst          string `json:"ipv6_dst"`
	TrafficClass uint8  `json:"ipv6_traffic_class"`
	FlowLabel    uint32 `json:"ipv6_flow_label"`
	SrcMask      string `json:"ipv6_src_mask"`
	DstMask      string `json:"ipv6_dst_mask"`
}

// VxLAN describes the outer headers wrapped around the stream's frame.
type VxLAN struct {
	EthSrc    string `json:"eth_src"`
	EthDst    string `json:"eth_dst"`
	IPSrc     string `json:"ip_src"`
	IPDst     string `json:"ip_dst"`
	IPToS     uint8  `json:"ip_tos"`
	UDPSource uint16 `json:"udp_source"`
	VNI       uint32 `json:"vni"`
}

// StreamSetting activates a stream on one port with its header values.
type StreamSetting struct {
	Port      int         `json:"port"`
	StreamID  int         `json:"stream_id"`
	Active    bool        `json:"active"`
	VLAN      *VLAN       `json:"vlan,omitempty"`
	MPLSStack []MPLSEntry `json:"mpls_stack,omitempty"`
	Ethernet  Ethernet    `json:"ethernet"`
	IP        *IPv4Header `json:"ip,omitempty"`
	IPv6      *IPv6Header `json:"ipv6,omitempty"`
	VxLAN     *VxLAN      `json:"vxlan,omitempty"`
	SIDList   []string    `json:"sid_list,omitempty"`
}

// TrafficGen is a test definition submitted to the controller.
type TrafficGen struct {
	Mode            GenerationMode  `json:"mode"`
	Streams         []Stream        `json:"streams"`
	StreamSettings  []StreamSetting `json:"stream_settings"`
	PortTxRxMapping PortMapping     `json:"port_tx_rx_mapping"`
	Duration        int             `json:"duration,omitempty"`
	Name            string          `json:"name,omitempty"`
}

func (t *TrafficGen) Stream(id int) (Stream, bool) {
	for _, s := range t.Streams {
		if s.StreamID == id {
			return s, true
		}
	}
	return Stream{}, false
}

// ActiveSettings returns the settings of a stream that are switched on.
func (t *TrafficGen) ActiveSettings(streamID int) []StreamSetting {
	var out []StreamSetting
	for _, s := range t.StreamSettings {
		if s.StreamID == streamID && s.Active {
			out = append(out, s)
		}
	}
	return out
}

// MultipleTrafficGen runs several definitions one after another.
type MultipleTrafficGen struct {
	Tests []TrafficGen `json:"tests"`
	Name  string       `json:"name,omitempty"`
}

// TestList is the controller's view of the configured tests keyed by test number.
// A bare definition (single-test controller) decodes as test "1".
type TestList map[string]TrafficGen

func (l *TestList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	if _, single := probe["mode"]; single {
		var tg TrafficGen
		if err := json.Unmarshal(b, &tg); err != nil {
			return err
		}
		*l = TestList{"1": tg}
		return nil
	}
	out := make(TestList, len(probe))
	for k, v := range probe {
		var tg TrafficGen
		if err := json.Unmarshal(v, &tg); err != nil {
			return err
		}
		out[k] = tg
	}
	*l = out
	return nil
}

// Numbers returns the test numbers in ascending order.
func (l TestList) Numbers() []string {
	out := make([]string, 0, len(l))
	for k := range l {
		out = append(out, k)
	}
	SortPortIDs(out)
	return out
}

// FromDefinitions numbers definitions starting at 1.
func FromDefinitions(defs []TrafficGen) TestList {
	out := make(TestList, len(defs))
	for i, d := range defs {
		out[strconv.Itoa(i+1)] = d
	}
	return out
}
