package otpnet

import (
	"encoding/binary"
	"net"
)

// Addressing derives the advertisement and per-system transform
// multicast groups a producer or consumer joins. ANSI E1.59 §4.6 treats the
// published OTP address allocations as "configuration inputs, not
// literals", so the base addresses live here as defaults a deployment is
// expected to override, not hardcoded throughout the engine.
type Addressing struct {
	AdvertisementIPv4 net.IP
	AdvertisementIPv6 net.IP
	TransformBaseIPv4 net.IP
	TransformBaseIPv6 net.IP
}

// DefaultAddressing returns the conventional ANSI E1.59 multicast
// allocations: 239.159.1.1 for advertisement (the 239.159/16
// organization-local scope assigned to E1.59) and 239.159.2.0 as the
// base transform address, one system number added to the low byte.
func DefaultAddressing() Addressing {
	return Addressing{
		AdvertisementIPv4: net.IPv4(239, 159, 1, 1),
		AdvertisementIPv6: net.ParseIP("ff18::4553:4950"),
		TransformBaseIPv4: net.IPv4(239, 159, 2, 0),
		TransformBaseIPv6: net.ParseIP("ff18::4553:4954:0"),
	}
}

// TransformGroupIPv4 returns the IPv4 multicast group for system,
// offsetting the base address's low 16 bits by the system number.
func (a Addressing) TransformGroupIPv4(system uint8) net.IP {
	base := a.TransformBaseIPv4.To4()
	var n uint32
	n = binary.BigEndian.Uint32(base) + uint32(system)
	out := make(net.IP, 4)
	binary.BigEndian.PutUint32(out, n)
	return out
}

// TransformGroupIPv6 returns the IPv6 multicast group for system,
// offsetting the base address's low 16 bits by the system number.
func (a Addressing) TransformGroupIPv6(system uint8) net.IP {
	base := a.TransformBaseIPv6.To16()
	out := make(net.IP, 16)
	copy(out, base)
	n := binary.BigEndian.Uint16(out[14:16]) + uint16(system)
	binary.BigEndian.PutUint16(out[14:16], n)
	return out
}
