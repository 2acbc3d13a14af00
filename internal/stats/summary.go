package stats

import (
	"sort"

	"tgdash/pkg/model"
)

type RateTotals struct {
	TxL1 float64 `json:"tx_l1"`
	TxL2 float64 `json:"tx_l2"`
	RxL1 float64 `json:"rx_l1"`
	RxL2 float64 `json:"rx_l2"`
}

// Rates sums TX bit rates over mapped TX ports and RX bit rates over mapped RX ports.
func Rates(s *model.Statistics, m model.PortMapping) RateTotals {
	var out RateTotals
	if s == nil {
		return out
	}
	out.TxL1 = sumRate(s.TxRateL1, m, model.TX)
	out.TxL2 = sumRate(s.TxRateL2, m, model.TX)
	out.RxL1 = sumRate(s.RxRateL1, m, model.RX)
	out.RxL2 = sumRate(s.RxRateL2, m, model.RX)
	return out
}

func sumRate(rates map[string]float64, m model.PortMapping, d model.Direction) float64 {
	var total float64
	for _, port := range sortedKeys(rates) {
		if m.Has(d, port) {
			total += rates[port]
		}
	}
	return total
}

// AppRates sums the per-stream L2 rate keyed by app id over the mapped ports of d.
func AppRates(s *model.Statistics, m model.PortMapping, d model.Direction) map[string]float64 {
	out := make(map[string]float64)
	if s == nil {
		return out
	}
	src := s.AppTxL2
	if d == model.RX {
		src = s.AppRxL2
	}
	for _, port := range sortedKeys(src) {
		if !m.Has(d, port) {
			continue
		}
		apps := src[port]
		for _, app := range sortedKeys(apps) {
			out[app] += apps[app]
		}
	}
	return out
}

// TypeTotals returns FrameTypeTotals for each name in names.
func TypeTotals(s *model.Statistics, m model.PortMapping, names []string) map[string]TxRx {
	out := make(map[string]TxRx, len(names))
	for _, n := range names {
		out[n] = FrameTypeTotals(s, m, n)
	}
	return out
}

type BucketTotal struct {
	Low     uint32 `json:"low"`
	High    uint32 `json:"high"`
	Packets uint64 `json:"packets"`
}

// FrameSizeTotals returns the standard buckets in ascending order.
func FrameSizeTotals(s *model.Statistics, m model.PortMapping, d model.Direction) []BucketTotal {
	out := make([]BucketTotal, 0, len(model.StandardFrameSizes))
	for _, r := range model.StandardFrameSizes {
		out = append(out, BucketTotal{
			Low:     r.Low,
			High:    r.High,
			Packets: FrameSizeBucketTotal(s, m, d, r.Low, r.High),
		})
	}
	return out
}

// RTTHistogram merges the RTT histograms of the mapped RX ports bin by bin.
// ok is false when no mapped port reports a histogram, which callers show as
// "not available" rather than as zero.
func RTTHistogram(s *model.Statistics, m model.PortMapping) (bins []model.HistogramBin, ok bool) {
	if s == nil {
		return nil, false
	}
	type key struct{ low, high float64 }
	idx := make(map[key]int)
	for _, port := range sortedKeys(s.RTTHistogram) {
		if !m.HasRX(port) {
			continue
		}
		ok = true
		for _, b := range s.RTTHistogram[port].Bins {
			k := key{b.Low, b.High}
			if i, seen := idx[k]; seen {
				bins[i].Count += b.Count
				continue
			}
			idx[k] = len(bins)
			bins = append(bins, b)
		}
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].Low < bins[j].Low })
	return bins, ok
}

// Elapsed returns the snapshot's elapsed seconds, or the definition's duration
// when the snapshot does not carry one.
func Elapsed(s *model.Statistics, def *model.TrafficGen) float64 {
	if s != nil && s.ElapsedTime > 0 {
		return s.ElapsedTime
	}
	if def != nil {
		return float64(def.Duration)
	}
	return 0
}

// LossRatio is lost packets over transmitted frames of the mapped TX ports, in percent.
func LossRatio(s *model.Statistics, m model.PortMapping) float64 {
	sent := FrameTypeTotals(s, m, "total").TX
	if sent == 0 {
		return 0
	}
	return float64(LostPackets(s, m)) / float64(sent) * 100
}

// Summary bundles every aggregated metric of one snapshot.
type Summary struct {
	Rates         RateTotals         `json:"rates"`
	FrameTypes    map[string]TxRx    `json:"frame_types"`
	EthernetTypes map[string]TxRx    `json:"ethernet_types"`
	TxFrameSizes  []BucketTotal      `json:"tx_frame_sizes"`
	RxFrameSizes  []BucketTotal      `json:"rx_frame_sizes"`
	AppTx         map[string]float64 `json:"app_tx"`
	AppRx         map[string]float64 `json:"app_rx"`
	RTT           model.RTTSummary   `json:"rtt"`
	IATTx         model.IATSummary   `json:"iat_tx"`
	IATRx         model.IATSummary   `json:"iat_rx"`
	Lost          uint64             `json:"lost"`
	OutOfOrder    uint64             `json:"out_of_order"`
	LossPercent   float64            `json:"loss_percent"`
	Elapsed       float64            `json:"elapsed"`
}

// Summarize aggregates s over m. def may be nil.
func Summarize(s *model.Statistics, m model.PortMapping, def *model.TrafficGen) Summary {
	return Summary{
		Rates:         Rates(s, m),
		FrameTypes:    TypeTotals(s, m, model.FrameTypes),
		EthernetTypes: TypeTotals(s, m, model.EthernetTypes),
		TxFrameSizes:  FrameSizeTotals(s, m, model.TX),
		RxFrameSizes:  FrameSizeTotals(s, m, model.RX),
		AppTx:         AppRates(s, m, model.TX),
		AppRx:         AppRates(s, m, model.RX),
		RTT:           WeightedRTT(s, m),
		IATTx:         WeightedIAT(model.TX, s, m),
		IATRx:         WeightedIAT(model.RX, s, m),
		Lost:          LostPackets(s, m),
		OutOfOrder:    OutOfOrderPackets(s, m),
		LossPercent:   LossRatio(s, m),
		Elapsed:       Elapsed(s, def),
	}
}
