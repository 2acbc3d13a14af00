package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"tgdash/internal/frame"
	"tgdash/pkg/model"
)

// TrafficGen checks a whole definition and returns every violation joined.
func TrafficGen(def *model.TrafficGen) error {
	if def == nil {
		return fieldErr("traffic_gen", nil, "is missing")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if !def.Mode.Valid() {
		add(fieldErr("mode", int(def.Mode), "is not a generation mode"))
	}
	if def.Duration < 0 {
		add(fieldErr("duration", def.Duration, "is negative"))
	}
	if len(def.Streams) == 0 && def.Mode != model.ModeMonitor {
		add(fieldErr("streams", 0, "must not be empty"))
	}

	for tx, rx := range def.PortTxRxMapping {
		add(portID("port_tx_rx_mapping", tx))
		add(portID("port_tx_rx_mapping["+tx+"]", rx))
	}

	ids := make(map[int]bool, len(def.Streams))
	for _, st := range def.Streams {
		if ids[st.StreamID] {
			add(fieldErr("stream_id", st.StreamID, "is used twice"))
		}
		ids[st.StreamID] = true
		add(stream(def.Mode, st))
	}

	for i, set := range def.StreamSettings {
		prefix := fmt.Sprintf("stream_settings[%d]", i)
		st, ok := def.Stream(set.StreamID)
		if !ok {
			add(fieldErr(prefix+".stream_id", set.StreamID, "refers to no stream"))
			continue
		}
		if !set.Active {
			continue
		}
		if !def.PortTxRxMapping.HasTX(strconv.Itoa(set.Port)) {
			add(fieldErr(prefix+".port", set.Port, "is not a TX port of the port mapping"))
		}
		add(setting(prefix, st, set))
		if _, err := frame.Build(st, set); err != nil && errors.Is(err, frame.ErrTooSmall) {
			add(fmt.Errorf("%s: %w", prefix, err))
		}
	}
	return errors.Join(errs...)
}

func portID(field, id string) error {
	n, err := strconv.Atoi(id)
	if err != nil || n < 0 {
		return fieldErr(field, id, "is not a port id")
	}
	return nil
}

func stream(mode model.GenerationMode, st model.Stream) error {
	f := func(name string) string { return fmt.Sprintf("streams[%d].%s", st.StreamID, name) }
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	add(inRange(f("frame_size"), int64(st.FrameSize), frame.MinFrameSize, frame.MaxFrameSize))
	if !st.Encapsulation.Valid() {
		add(fieldErr(f("encapsulation"), int(st.Encapsulation), "is not an encapsulation"))
	}
	if st.IPVersion != 0 && st.IPVersion != 4 && st.IPVersion != 6 {
		add(fieldErr(f("ip_version"), st.IPVersion, "must be 4 or 6"))
	}
	if mode != model.ModeMonitor && st.TrafficRate <= 0 {
		add(fieldErr(f("traffic_rate"), st.TrafficRate, "must be positive"))
	}
	if st.Burst != model.BurstIATPrecision && st.Burst != model.BurstRatePrecision {
		add(fieldErr(f("burst"), st.Burst, fmt.Sprintf("must be %d or %d", model.BurstIATPrecision, model.BurstRatePrecision)))
	}
	switch st.Encapsulation {
	case model.EncapMPLS:
		add(LSECount(f("number_of_lse"), int64(st.NumberOfLSE)))
	case model.EncapSRv6:
		add(SIDCount(f("number_of_srv6_sids"), int64(st.NumberOfSRv6SIDs)))
		if st.VxLAN {
			add(fieldErr(f("vxlan"), true, "cannot be combined with SRv6"))
		}
	}
	return errors.Join(errs...)
}

func setting(prefix string, st model.Stream, set model.StreamSetting) error {
	f := func(name string) string { return prefix + "." + name }
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	add(MAC(f("ethernet.eth_src"), set.Ethernet.Src))
	add(MAC(f("ethernet.eth_dst"), set.Ethernet.Dst))

	switch st.Encapsulation {
	case model.EncapVLAN, model.EncapQinQ:
		if set.VLAN == nil {
			add(fieldErr(f("vlan"), nil, "is missing"))
			break
		}
		add(VLANID(f("vlan.vlan_id"), int64(set.VLAN.VLANID)))
		add(PCP(f("vlan.pcp"), int64(set.VLAN.PCP)))
		add(DEI(f("vlan.dei"), int64(set.VLAN.DEI)))
		if st.Encapsulation == model.EncapQinQ {
			add(VLANID(f("vlan.inner_vlan_id"), int64(set.VLAN.InnerVLANID)))
			add(PCP(f("vlan.inner_pcp"), int64(set.VLAN.InnerPCP)))
			add(DEI(f("vlan.inner_dei"), int64(set.VLAN.InnerDEI)))
		}
	case model.EncapMPLS:
		if len(set.MPLSStack) != st.NumberOfLSE {
			add(fieldErr(f("mpls_stack"), len(set.MPLSStack), fmt.Sprintf("entries, stream expects %d", st.NumberOfLSE)))
		}
		for i, e := range set.MPLSStack {
			add(MPLSLabel(f(fmt.Sprintf("mpls_stack[%d].label", i)), int64(e.Label)))
			add(MPLSTC(f(fmt.Sprintf("mpls_stack[%d].tc", i)), int64(e.TC)))
		}
	case model.EncapSRv6:
		if len(set.SIDList) != st.NumberOfSRv6SIDs {
			add(fieldErr(f("sid_list"), len(set.SIDList), fmt.Sprintf("entries, stream expects %d", st.NumberOfSRv6SIDs)))
		}
		for i, sid := range set.SIDList {
			add(IPv6(f(fmt.Sprintf("sid_list[%d]", i)), sid))
		}
		if set.IPv6 == nil {
			add(fieldErr(f("ipv6"), nil, "is missing"))
		}
	}

	needIP := st.Encapsulation != model.EncapSRv6 || st.SRv6IPTunneling
	if needIP {
		if st.IPVersion == 6 {
			add(ipv6Header(f("ipv6"), set.IPv6))
		} else {
			add(ipv4Header(f("ip"), set.IP))
		}
	} else if set.IPv6 != nil {
		add(ipv6Header(f("ipv6"), set.IPv6))
	}

	if st.VxLAN {
		add(vxlan(f("vxlan"), set.VxLAN))
	}
	return errors.Join(errs...)
}

func ipv4Header(field string, h *model.IPv4Header) error {
	if h == nil {
		return fieldErr(field, nil, "is missing")
	}
	return errors.Join(
		IPv4(field+".ip_src", h.Src),
		IPv4(field+".ip_dst", h.Dst),
		optionalIPv4(field+".ip_src_mask", h.SrcMask),
		optionalIPv4(field+".ip_dst_mask", h.DstMask),
	)
}

func ipv6Header(field string, h *model.IPv6Header) error {
	if h == nil {
		return fieldErr(field, nil, "is missing")
	}
	return errors.Join(
		IPv6(field+".ipv6_src", h.Src),
		IPv6(field+".ipv6_dst", h.Dst),
		FlowLabel(field+".ipv6_flow_label", int64(h.FlowLabel)),
		optionalIPv6(field+".ipv6_src_mask", h.SrcMask),
		optionalIPv6(field+".ipv6_dst_mask", h.DstMask),
	)
}

func vxlan(field string, v *model.VxLAN) error {
	if v == nil {
		return fieldErr(field, nil, "is missing")
	}
	return errors.Join(
		MAC(field+".eth_src", v.EthSrc),
		MAC(field+".eth_dst", v.EthDst),
		IPv4(field+".ip_src", v.IPSrc),
		IPv4(field+".ip_dst", v.IPDst),
		Port(field+".udp_source", int64(v.UDPSource)),
		VNI(field+".vni", int64(v.VNI)),
	)
}

func optionalIPv4(field, s string) error {
	if s == "" {
		return nil
	}
	return IPv4(field, s)
}

func optionalIPv6(field, s string) error {
	if s == "" {
		return nil
	}
	return IPv6(field, s)
}

// requiredKeys must be present in every imported definition.
var requiredKeys = []string{"mode", "streams", "stream_settings", "port_tx_rx_mapping"}

// isDefinition reports whether the top level is one definition rather than an
// object keyed by test number.
func isDefinition(top map[string]json.RawMessage) bool {
	for _, k := range requiredKeys {
		if _, ok := top[k]; ok {
			return true
		}
	}
	return false
}

// ImportFile checks an exported configuration before anything is stored. It
// accepts a single definition or an object of definitions keyed by test number.
func ImportFile(raw []byte) (model.TestList, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("%w: not a JSON object: %v", ErrInvalid, err)
	}

	defs := top
	if isDefinition(top) {
		defs = map[string]json.RawMessage{"1": raw}
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: no test definitions", ErrInvalid)
	}

	out := make(model.TestList, len(defs))
	var errs []error
	for _, n := range sortedNumbers(defs) {
		if err := portID("test", n); err != nil {
			errs = append(errs, err)
			continue
		}
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(defs[n], &keys); err != nil {
			errs = append(errs, fmt.Errorf("test %s: %w: not a JSON object", n, ErrInvalid))
			continue
		}
		missing := false
		for _, k := range requiredKeys {
			if v, ok := keys[k]; !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
				errs = append(errs, fmt.Errorf("test %s: %w", n, fieldErr(k, nil, "is missing")))
				missing = true
			}
		}
		if missing {
			continue
		}
		var def model.TrafficGen
		if err := json.Unmarshal(defs[n], &def); err != nil {
			errs = append(errs, fmt.Errorf("test %s: %w: %v", n, ErrInvalid, err))
			continue
		}
		if err := TrafficGen(&def); err != nil {
			errs = append(errs, fmt.Errorf("test %s: %w", n, err))
			continue
		}
		out[n] = def
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

func sortedNumbers(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	model.SortPortIDs(out)
	return out
}
