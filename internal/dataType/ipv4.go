package dataType

import (
	"strconv"
	"strings"
)

// ParseIPv4 converts a dotted-quad string into its 32-bit value.
// ok is false unless the input has exactly four decimal octets in [0,255].
func ParseIPv4(ip string) (uint32, bool) {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return 0, false
	}
	var n uint32
	for _, p := range parts {
		if p == "" || len(p) > 3 || strings.Trim(p, "0123456789") != "" {
			return 0, false
		}
		octet, err := strconv.Atoi(p)
		if err != nil || octet > 255 {
			return 0, false
		}
		n = n<<8 | uint32(octet)
	}
	return n, true
}

// IPToNumber returns the numeric form of ip, or 0 when it cannot be parsed.
// A 0 result must not be compared as if it were an address; use ParseIPv4 when
// 0.0.0.0 has to be told apart from garbage.
func IPToNumber(ip string) uint32 {
	n, ok := ParseIPv4(ip)
	if !ok {
		return 0
	}
	return n
}

// NumberToIP formats a 32-bit value as a dotted quad
func NumberToIP(n uint32) string {
	var b strings.Builder
	for i := 3; i >= 0; i-- {
		b.WriteString(strconv.Itoa(int(n >> (uint(i) * 8) & 0xff)))
		if i > 0 {
			b.WriteByte('.')
		}
	}
	return b.String()
}

// MaskFor returns the network mask for a prefix length, ok is false outside [0,32]
func MaskFor(maskLen int) (uint32, bool) {
	if maskLen < 0 || maskLen > 32 {
		return 0, false
	}
	// a shift by 32 is not a valid way to build the /0 mask
	if maskLen == 0 {
		return 0, true
	}
	return ^uint32(0) << uint(32-maskLen), true
}

// IsInCIDR reports whether ip lies inside network/maskLen.
// Unparseable addresses never match, not even each other.
func IsInCIDR(ip string, network string, maskLen int) bool {
	mask, ok := MaskFor(maskLen)
	if !ok {
		return false
	}
	ipNum, ok := ParseIPv4(ip)
	if !ok {
		return false
	}
	netNum, ok := ParseIPv4(network)
	if !ok {
		return false
	}
	return ipNum&mask == netNum&mask
}
