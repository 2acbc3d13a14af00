package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// PortMapping maps a TX port id to the RX port id expected to observe its traffic.
type PortMapping map[string]string

func (m PortMapping) HasTX(port string) bool {
	_, ok := m[port]
	return ok
}

func (m PortMapping) HasRX(port string) bool {
	for _, rx := range m {
		if rx == port {
			return true
		}
	}
	return false
}

// Has reports whether port is on the given side of the mapping.
func (m PortMapping) Has(d Direction, port string) bool {
	if d == RX {
		return m.HasRX(port)
	}
	return m.HasTX(port)
}

func (m PortMapping) TXPorts() []string {
	out := make([]string, 0, len(m))
	for tx := range m {
		out = append(out, tx)
	}
	SortPortIDs(out)
	return out
}

// RXPorts returns the distinct RX ports.
func (m PortMapping) RXPorts() []string {
	seen := make(map[string]struct{}, len(m))
	out := make([]string, 0, len(m))
	for _, rx := range m {
		if _, ok := seen[rx]; ok {
			continue
		}
		seen[rx] = struct{}{}
		out = append(out, rx)
	}
	SortPortIDs(out)
	return out
}

// The controller sends port ids as JSON numbers, older exports use strings.
func (m *PortMapping) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(PortMapping, len(raw))
	for tx, v := range raw {
		var n json.Number
		if err := json.Unmarshal(v, &n); err == nil {
			out[tx] = n.String()
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("port mapping %s: %w", tx, err)
		}
		out[tx] = s
	}
	*m = out
	return nil
}

func (m PortMapping) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m))
	for tx, rx := range m {
		if n, err := strconv.Atoi(rx); err == nil {
			out[tx] = n
		} else {
			out[tx] = rx
		}
	}
	return json.Marshal(out)
}

// SortPortIDs orders ids numerically when both parse as integers, lexically otherwise.
func SortPortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA == nil && errB == nil {
			return a < b
		}
		if errA == nil {
			return true
		}
		if errB == nil {
			return false
		}
		return ids[i] < ids[j]
	})
}
