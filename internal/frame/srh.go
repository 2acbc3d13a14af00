package frame

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const routingTypeSRH = 4

// segmentRouting is the IPv6 segment routing header (RFC 8754), which gopacket
// decodes but cannot serialize. Segments are in travel order.
type segmentRouting struct {
	NextHeader layers.IPProtocol
	Segments   []net.IP
}

func (s *segmentRouting) LayerType() gopacket.LayerType { return layers.LayerTypeIPv6Routing }

func (s *segmentRouting) SerializeTo(b gopacket.SerializeBuffer, _ gopacket.SerializeOptions) error {
	n := len(s.Segments)
	if n == 0 || n > 127 {
		return fmt.Errorf("srh: %d segments", n)
	}
	bytes, err := b.PrependBytes(8 + 16*n)
	if err != nil {
		return err
	}
	bytes[0] = byte(s.NextHeader)
	bytes[1] = byte(2 * n) // 8-octet units after the first 8
	bytes[2] = routingTypeSRH
	bytes[3] = byte(n - 1) // segments left
	bytes[4] = byte(n - 1) // last entry
	bytes[5], bytes[6], bytes[7] = 0, 0, 0
	// the list is encoded in reverse: entry 0 is the final segment
	for i, seg := range s.Segments {
		copy(bytes[8+16*(n-1-i):], seg.To16())
	}
	return nil
}
