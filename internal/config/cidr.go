package config

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// CIDRSubnet calculates a subnet address given a network address, a netmask size increase, and a subnet number.
// This mimics the behavior of Terraform's cidrsubnet function.
//
// Only IPv4 prefixes are supported.
func CIDRSubnet(prefix string, newbits int, netnum int) (string, error) {
	p, err := netip.ParsePrefix(prefix)
	if err != nil {
		return "", fmt.Errorf("invalid CIDR prefix: %w", err)
	}
	if !p.Addr().Is4() {
		return "", fmt.Errorf("only IPv4 addresses are supported, got %s", prefix)
	}
	p = p.Masked()

	newLen := p.Bits() + newbits
	if newbits < 0 || newLen > 32 {
		return "", fmt.Errorf("prefix extension of %d bits is too large for %s", newbits, prefix)
	}
	if netnum < 0 || netnum >= 1<<newbits {
		return "", fmt.Errorf("subnet number %d exceeds max subnets %d", netnum, 1<<newbits)
	}

	base := p.Addr().As4()
	// #nosec G115
	n := binary.BigEndian.Uint32(base[:]) + uint32(netnum)<<(32-newLen)
	var out [4]byte
	binary.BigEndian.PutUint32(out[:], n)
	return netip.PrefixFrom(netip.AddrFrom4(out), newLen).String(), nil
}
