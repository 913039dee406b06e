// Package privacy masks client network addresses before they reach logs.
package privacy

import "net/netip"

const (
	ipv4MaskBits = 24
	ipv6MaskBits = 48
)

// AnonymizeIP truncates an address to its network prefix so that log lines
// cannot identify a single host: IPv4 keeps the /24, IPv6 keeps the /48.
//
//	"192.168.1.47"                 -> "192.168.1.0"
//	"2001:db8:85a3::8a2e:370:7334" -> "2001:db8:85a3::"
//
// Empty input yields "unknown"; anything that does not parse as an address
// yields "invalid". Zones and IPv4-mapped IPv6 forms are normalized first.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.WithZone("").Unmap()

	bits := ipv6MaskBits
	if addr.Is4() {
		bits = ipv4MaskBits
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}
