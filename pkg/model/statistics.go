package model

import "strconv"

// FrameSizeBucket counts packets whose size lies in [Low, High] bytes.
type FrameSizeBucket struct {
	Low     uint32 `json:"low"`
	High    uint32 `json:"high"`
	Packets uint64 `json:"packets"`
}

type FrameSizeSide struct {
	TX []FrameSizeBucket `json:"tx"`
	RX []FrameSizeBucket `json:"rx"`
}

func (f FrameSizeSide) Side(d Direction) []FrameSizeBucket {
	if d == RX {
		return f.RX
	}
	return f.TX
}

// FrameTypeSide holds per-direction counters keyed by frame or ethernet type name.
type FrameTypeSide struct {
	TX map[string]uint64 `json:"tx"`
	RX map[string]uint64 `json:"rx"`
}

func (f FrameTypeSide) Side(d Direction) map[string]uint64 {
	if d == RX {
		return f.RX
	}
	return f.TX
}

type IATSummary struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	MAE  float64 `json:"mae"`
	N    uint64  `json:"n"`
}

type IATSide struct {
	TX IATSummary `json:"tx"`
	RX IATSummary `json:"rx"`
}

func (s IATSide) Side(d Direction) IATSummary {
	if d == RX {
		return s.RX
	}
	return s.TX
}

// RTTSummary values are in nanoseconds.
type RTTSummary struct {
	Mean    float64 `json:"mean"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Jitter  float64 `json:"jitter"`
	Current float64 `json:"current"`
	N       uint64  `json:"n"`
}

type HistogramBin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count uint64  `json:"count"`
}

type RTTHistogram struct {
	Bins []HistogramBin `json:"bins"`
}

// Statistics is one snapshot of the controller's per-port counters.
// Every per-port map is keyed by the string port id; a missing port reads as zero.
type Statistics struct {
	SampleMode    bool                     `json:"sample_mode"`
	FrameSize     map[string]FrameSizeSide `json:"frame_size"`
	FrameTypeData map[string]FrameTypeSide `json:"frame_type_data"`

	TxRateL1 map[string]float64 `json:"tx_rate_l1"`
	TxRateL2 map[string]float64 `json:"tx_rate_l2"`
	RxRateL1 map[string]float64 `json:"rx_rate_l1"`
	RxRateL2 map[string]float64 `json:"rx_rate_l2"`

	// port -> stream app id -> L2 bit rate
	AppTxL2 map[string]map[string]float64 `json:"app_tx_l2"`
	AppRxL2 map[string]map[string]float64 `json:"app_rx_l2"`

	IATs         map[string]IATSide      `json:"iats"`
	RTTs         map[string]RTTSummary   `json:"rtts"`
	PacketLoss   map[string]uint64       `json:"packet_loss"`
	OutOfOrder   map[string]uint64       `json:"out_of_order"`
	RTTHistogram map[string]RTTHistogram `json:"rtt_histogram,omitempty"`

	ElapsedTime float64 `json:"elapsed_time"`

	// Results of earlier tests of a multi-test run, keyed by test number.
	PreviousStatistics map[string]*Statistics `json:"previous_statistics,omitempty"`
}

// ForTest returns the statistics of a test number. Finished tests of a
// multi-test run live in PreviousStatistics; the running test is the top level
// and carries the number following the last finished one.
func (s *Statistics) ForTest(number string) (*Statistics, bool) {
	if s == nil {
		return nil, false
	}
	if p, ok := s.PreviousStatistics[number]; ok && p != nil {
		return p, true
	}
	if number == "" || number == strconv.Itoa(len(s.PreviousStatistics)+1) {
		return s, true
	}
	return nil, false
}

// TimeSeries maps port id -> elapsed second -> value.
type TimeSeries map[string]map[string]float64

type TimeStatistics struct {
	TxRateL1   TimeSeries `json:"tx_rate_l1"`
	RxRateL1   TimeSeries `json:"rx_rate_l1"`
	PacketLoss TimeSeries `json:"packet_loss"`
	OutOfOrder TimeSeries `json:"out_of_order"`
	RTT        TimeSeries `json:"rtt"`

	PreviousTimeStatistics map[string]*TimeStatistics `json:"previous_time_statistics,omitempty"`
}

func (t *TimeStatistics) ForTest(number string) (*TimeStatistics, bool) {
	if t == nil {
		return nil, false
	}
	if p, ok := t.PreviousTimeStatistics[number]; ok && p != nil {
		return p, true
	}
	if number == "" || number == strconv.Itoa(len(t.PreviousTimeStatistics)+1) {
		return t, true
	}
	return nil, false
}

// Frame type and ethernet type counter names reported in FrameTypeData.
var (
	FrameTypes    = []string{"multicast", "broadcast", "unicast", "non-unicast", "total"}
	EthernetTypes = []string{"vlan", "qinq", "ipv4", "ipv6", "mpls", "arp", "unknown"}
)

// SizeRange is an inclusive frame size interval in bytes.
type SizeRange struct {
	Low  uint32
	High uint32
}

// StandardFrameSizes are the histogram buckets the controller reports.
var StandardFrameSizes = []SizeRange{
	{0, 63},
	{64, 64},
	{65, 127},
	{128, 255},
	{256, 511},
	{512, 1023},
	{1024, 1518},
	{1519, 21519},
}
