// Package stats combines per-port controller statistics over the ports that
// take part in a TX->RX port mapping. All functions are pure: absent ports and
// counters read as zero and nothing here returns an error.
package stats

import (
	"sort"

	"tgdash/pkg/model"
)

type TxRx struct {
	TX uint64 `json:"tx"`
	RX uint64 `json:"rx"`
}

// FrameTypeTotals sums the TX counter of typeName over mapped TX ports and the
// RX counter over mapped RX ports.
func FrameTypeTotals(s *model.Statistics, m model.PortMapping, typeName string) TxRx {
	var out TxRx
	if s == nil {
		return out
	}
	for port, side := range s.FrameTypeData {
		if m.HasTX(port) {
			out.TX += side.TX[typeName]
		}
		if m.HasRX(port) {
			out.RX += side.RX[typeName]
		}
	}
	return out
}

// FrameSizeBucketTotal sums the packets of every [low, high] bucket on the
// mapped ports of direction d.
func FrameSizeBucketTotal(s *model.Statistics, m model.PortMapping, d model.Direction, low, high uint32) uint64 {
	var total uint64
	if s == nil {
		return total
	}
	for port, side := range s.FrameSize {
		if !m.Has(d, port) {
			continue
		}
		for _, b := range side.Side(d) {
			if b.Low == low && b.High == high {
				total += b.Packets
			}
		}
	}
	return total
}

// WeightedRTT merges the RTT summaries of the mapped RX ports. Mean, jitter and
// current are weighted by sample count; min and max are global. Ports without
// samples do not contribute.
func WeightedRTT(s *model.Statistics, m model.PortMapping) model.RTTSummary {
	var out model.RTTSummary
	if s == nil {
		return out
	}
	var mean, jitter, current float64
	first := true
	for _, port := range sortedKeys(s.RTTs) {
		r := s.RTTs[port]
		if !m.HasRX(port) || r.N == 0 {
			continue
		}
		n := float64(r.N)
		mean += r.Mean * n
		jitter += r.Jitter * n
		current += r.Current * n
		out.N += r.N
		if first || r.Min < out.Min {
			out.Min = r.Min
		}
		if first || r.Max > out.Max {
			out.Max = r.Max
		}
		first = false
	}
	if out.N == 0 {
		return model.RTTSummary{}
	}
	n := float64(out.N)
	out.Mean = mean / n
	out.Jitter = jitter / n
	out.Current = current / n
	return out
}

// WeightedIAT merges inter-arrival summaries of the mapped ports of direction d.
// Mean and std are weighted by n; MAE is averaged over the ports reporting a
// positive MAE.
func WeightedIAT(d model.Direction, s *model.Statistics, m model.PortMapping) model.IATSummary {
	var out model.IATSummary
	if s == nil {
		return out
	}
	var mean, std, mae float64
	maePorts := 0
	for _, port := range sortedKeys(s.IATs) {
		if !m.Has(d, port) {
			continue
		}
		iat := s.IATs[port].Side(d)
		n := float64(iat.N)
		mean += iat.Mean * n
		std += iat.Std * n
		out.N += iat.N
		if iat.MAE > 0 {
			mae += iat.MAE
			maePorts++
		}
	}
	if out.N > 0 {
		out.Mean = mean / float64(out.N)
		out.Std = std / float64(out.N)
	}
	out.MAE = mae / float64(max(maePorts, 1))
	return out
}

// LostPackets sums packet loss over the mapped RX ports.
func LostPackets(s *model.Statistics, m model.PortMapping) uint64 {
	if s == nil {
		return 0
	}
	return sumRX(s.PacketLoss, m)
}

func OutOfOrderPackets(s *model.Statistics, m model.PortMapping) uint64 {
	if s == nil {
		return 0
	}
	return sumRX(s.OutOfOrder, m)
}

func sumRX(counters map[string]uint64, m model.PortMapping) uint64 {
	var total uint64
	for port, v := range counters {
		if m.HasRX(port) {
			total += v
		}
	}
	return total
}

func sortedKeys[V any](in map[string]V) []string {
	out := make([]string, 0, len(in))
	for k := range in {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
