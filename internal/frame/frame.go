// Package frame builds the packet template of a stream so its header stack can
// be previewed and checked against the configured frame size.
package frame

import (
	"errors"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"tgdash/pkg/model"
)

const (
	MinFrameSize = 64
	MaxFrameSize = 9216
	// FCSLen is included in the configured frame size but not in the template.
	FCSLen = 4

	// UDP ports of generated traffic.
	SrcPort    = 50081
	DstPort    = 50083
	VxLANPort  = 4789
	DefaultTTL = 64
)

var ErrTooSmall = errors.New("headers do not fit in frame")

// Template is a serialized frame without FCS.
type Template struct {
	Bytes      []byte   `json:"-"`
	FrameSize  int      `json:"frame_size"`
	HeaderLen  int      `json:"header_len"`
	PayloadLen int      `json:"payload_len"`
	Layers     []string `json:"layers"`
}

// Build serializes the headers of stream st as configured by set, padded with
// a zero payload up to the frame size.
func Build(st model.Stream, set model.StreamSetting) (*Template, error) {
	if st.FrameSize < MinFrameSize || st.FrameSize > MaxFrameSize {
		return nil, fmt.Errorf("frame size %d out of range [%d, %d]", st.FrameSize, MinFrameSize, MaxFrameSize)
	}
	stack, err := headers(st, set)
	if err != nil {
		return nil, err
	}

	hdrLen, err := headerLen(stack)
	if err != nil {
		return nil, err
	}
	payload := st.FrameSize - FCSLen - hdrLen
	if payload < 0 {
		return nil, fmt.Errorf("%w: %d header bytes, frame size %d", ErrTooSmall, hdrLen+FCSLen, st.FrameSize)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	all := append(stack, gopacket.Payload(make([]byte, payload)))
	if err := gopacket.SerializeLayers(buf, opts, all...); err != nil {
		return nil, fmt.Errorf("serialize stream %d: %w", st.StreamID, err)
	}

	names := make([]string, 0, len(stack))
	for _, l := range stack {
		names = append(names, l.LayerType().String())
	}
	return &Template{
		Bytes:      buf.Bytes(),
		FrameSize:  st.FrameSize,
		HeaderLen:  hdrLen,
		PayloadLen: payload,
		Layers:     names,
	}, nil
}

// headerLen serializes every layer on its own. Ethernet is counted as its
// fixed header since gopacket pads short frames.
func headerLen(stack []gopacket.SerializableLayer) (int, error) {
	n := 0
	for _, l := range stack {
		if l.LayerType() == layers.LayerTypeEthernet {
			n += 14
			continue
		}
		buf := gopacket.NewSerializeBuffer()
		if err := l.SerializeTo(buf, gopacket.SerializeOptions{FixLengths: true}); err != nil {
			return 0, fmt.Errorf("serialize %s: %w", l.LayerType(), err)
		}
		n += len(buf.Bytes())
	}
	return n, nil
}

func headers(st model.Stream, set model.StreamSetting) ([]gopacket.SerializableLayer, error) {
	var stack []gopacket.SerializableLayer
	if st.VxLAN {
		outer, err := vxlanHeaders(set.VxLAN)
		if err != nil {
			return nil, err
		}
		stack = append(stack, outer...)
	}

	eth, err := ethernet(set.Ethernet.Src, set.Ethernet.Dst)
	if err != nil {
		return nil, err
	}
	stack = append(stack, eth)

	if st.Encapsulation == model.EncapSRv6 {
		srv6, err := srv6Headers(st, set)
		if err != nil {
			return nil, err
		}
		eth.EthernetType = layers.EthernetTypeIPv6
		return append(stack, srv6...), nil
	}

	ip, ipType, err := ipHeaders(st.IPVersion, set)
	if err != nil {
		return nil, err
	}

	switch st.Encapsulation {
	case model.EncapNone:
		eth.EthernetType = ipType
	case model.EncapVLAN:
		if set.VLAN == nil {
			return nil, errors.New("VLAN encapsulation without VLAN settings")
		}
		eth.EthernetType = layers.EthernetTypeDot1Q
		stack = append(stack, &layers.Dot1Q{
			Priority:       set.VLAN.PCP,
			DropEligible:   set.VLAN.DEI == 1,
			VLANIdentifier: set.VLAN.VLANID,
			Type:           ipType,
		})
	case model.EncapQinQ:
		if set.VLAN == nil {
			return nil, errors.New("QinQ encapsulation without VLAN settings")
		}
		eth.EthernetType = layers.EthernetTypeQinQ
		stack = append(stack,
			&layers.Dot1Q{
				Priority:       set.VLAN.PCP,
				DropEligible:   set.VLAN.DEI == 1,
				VLANIdentifier: set.VLAN.VLANID,
				Type:           layers.EthernetTypeDot1Q,
			},
			&layers.Dot1Q{
				Priority:       set.VLAN.InnerPCP,
				DropEligible:   set.VLAN.InnerDEI == 1,
				VLANIdentifier: set.VLAN.InnerVLANID,
				Type:           ipType,
			})
	case model.EncapMPLS:
		if len(set.MPLSStack) == 0 || len(set.MPLSStack) != st.NumberOfLSE {
			return nil, fmt.Errorf("MPLS stack has %d entries, stream expects %d", len(set.MPLSStack), st.NumberOfLSE)
		}
		eth.EthernetType = layers.EthernetTypeMPLSUnicast
		for i, e := range set.MPLSStack {
			stack = append(stack, &layers.MPLS{
				Label:        e.Label,
				TrafficClass: e.TC,
				StackBottom:  i == len(set.MPLSStack)-1,
				TTL:          e.TTL,
			})
		}
	default:
		return nil, fmt.Errorf("unsupported encapsulation %s", st.Encapsulation)
	}
	return append(stack, ip...), nil
}

func ethernet(src, dst string) (*layers.Ethernet, error) {
	s, err := net.ParseMAC(src)
	if err != nil {
		return nil, fmt.Errorf("ethernet source: %w", err)
	}
	d, err := net.ParseMAC(dst)
	if err != nil {
		return nil, fmt.Errorf("ethernet destination: %w", err)
	}
	return &layers.Ethernet{SrcMAC: s, DstMAC: d}, nil
}

func parseIP(s string, v4 bool) (net.IP, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("invalid address %q", s)
	}
	if v4 {
		if ip = ip.To4(); ip == nil {
			return nil, fmt.Errorf("%q is not an IPv4 address", s)
		}
	} else if ip.To4() != nil {
		return nil, fmt.Errorf("%q is not an IPv6 address", s)
	}
	return ip, nil
}

func udp() *layers.UDP {
	return &layers.UDP{SrcPort: SrcPort, DstPort: DstPort}
}

// ipHeaders returns the IP and UDP layers of the generated traffic.
func ipHeaders(version int, set model.StreamSetting) ([]gopacket.SerializableLayer, layers.EthernetType, error) {
	u := udp()
	switch version {
	case 0, 4:
		if set.IP == nil {
			return nil, 0, errors.New("IPv4 stream without IP settings")
		}
		src, err := parseIP(set.IP.Src, true)
		if err != nil {
			return nil, 0, fmt.Errorf("ip source: %w", err)
		}
		dst, err := parseIP(set.IP.Dst, true)
		if err != nil {
			return nil, 0, fmt.Errorf("ip destination: %w", err)
		}
		ip := &layers.IPv4{
			Version:  4,
			IHL:      5,
			TOS:      set.IP.ToS,
			TTL:      DefaultTTL,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    src,
			DstIP:    dst,
		}
		_ = u.SetNetworkLayerForChecksum(ip)
		return []gopacket.SerializableLayer{ip, u}, layers.EthernetTypeIPv4, nil
	case 6:
		ip, err := ipv6(set.IPv6, layers.IPProtocolUDP)
		if err != nil {
			return nil, 0, err
		}
		_ = u.SetNetworkLayerForChecksum(ip)
		return []gopacket.SerializableLayer{ip, u}, layers.EthernetTypeIPv6, nil
	}
	return nil, 0, fmt.Errorf("unsupported IP version %d", version)
}

func ipv6(h *model.IPv6Header, next layers.IPProtocol) (*layers.IPv6, error) {
	if h == nil {
		return nil, errors.New("IPv6 stream without IPv6 settings")
	}
	src, err := parseIP(h.Src, false)
	if err != nil {
		return nil, fmt.Errorf("ipv6 source: %w", err)
	}
	dst, err := parseIP(h.Dst, false)
	if err != nil {
		return nil, fmt.Errorf("ipv6 destination: %w", err)
	}
	return &layers.IPv6{
		Version:      6,
		TrafficClass: h.TrafficClass,
		FlowLabel:    h.FlowLabel,
		NextHeader:   next,
		HopLimit:     DefaultTTL,
		SrcIP:        src,
		DstIP:        dst,
	}, nil
}

func vxlanHeaders(v *model.VxLAN) ([]gopacket.SerializableLayer, error) {
	if v == nil {
		return nil, errors.New("VxLAN stream without VxLAN settings")
	}
	eth, err := ethernet(v.EthSrc, v.EthDst)
	if err != nil {
		return nil, fmt.Errorf("vxlan: %w", err)
	}
	eth.EthernetType = layers.EthernetTypeIPv4
	src, err := parseIP(v.IPSrc, true)
	if err != nil {
		return nil, fmt.Errorf("vxlan ip source: %w", err)
	}
	dst, err := parseIP(v.IPDst, true)
	if err != nil {
		return nil, fmt.Errorf("vxlan ip destination: %w", err)
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TOS:      v.IPToS,
		TTL:      DefaultTTL,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    src,
		DstIP:    dst,
	}
	u := &layers.UDP{SrcPort: layers.UDPPort(v.UDPSource), DstPort: VxLANPort}
	_ = u.SetNetworkLayerForChecksum(ip)
	return []gopacket.SerializableLayer{eth, ip, u, &layers.VXLAN{ValidIDFlag: true, VNI: v.VNI}}, nil
}

// srv6Headers returns the outer IPv6 header, the segment routing header and,
// with IP tunneling, the inner IP and UDP headers.
func srv6Headers(st model.Stream, set model.StreamSetting) ([]gopacket.SerializableLayer, error) {
	if len(set.SIDList) == 0 || len(set.SIDList) != st.NumberOfSRv6SIDs {
		return nil, fmt.Errorf("SID list has %d entries, stream expects %d", len(set.SIDList), st.NumberOfSRv6SIDs)
	}
	sids := make([]net.IP, 0, len(set.SIDList))
	for _, s := range set.SIDList {
		ip, err := parseIP(s, false)
		if err != nil {
			return nil, fmt.Errorf("sid: %w", err)
		}
		sids = append(sids, ip)
	}

	srh := &segmentRouting{Segments: sids, NextHeader: layers.IPProtocolNoNextHeader}
	var inner []gopacket.SerializableLayer
	if st.SRv6IPTunneling {
		ip, ipType, err := ipHeaders(st.IPVersion, set)
		if err != nil {
			return nil, err
		}
		inner = ip
		srh.NextHeader = layers.IPProtocolIPv4
		if ipType == layers.EthernetTypeIPv6 {
			srh.NextHeader = layers.IPProtocolIPv6
		}
	}

	outer, err := ipv6(set.IPv6, layers.IPProtocolIPv6Routing)
	if err != nil {
		return nil, fmt.Errorf("srv6 outer header: %w", err)
	}
	// the destination is the active segment
	outer.DstIP = sids[0]
	return append([]gopacket.SerializableLayer{outer, srh}, inner...), nil
}
