package vpp

import (
	"inet.af/netaddr"

	"go.fd.io/govpp/binapi/fib_types"
	"go.fd.io/govpp/binapi/ip_types"
)

func toAddress(ip netaddr.IP) ip_types.Address {
	if ip.Is4() {
		return ip_types.Address{
			Af: ip_types.ADDRESS_IP4,
			Un: ip_types.AddressUnionIP4(ip_types.IP4Address(ip.As4())),
		}
	}
	return ip_types.Address{
		Af: ip_types.ADDRESS_IP6,
		Un: ip_types.AddressUnionIP6(ip_types.IP6Address(ip.As16())),
	}
}

func toPrefix(p netaddr.IPPrefix) ip_types.Prefix {
	return ip_types.Prefix{
		Address: toAddress(p.IP()),
		Len:     p.Bits(),
	}
}

func pathProto(ip netaddr.IP) fib_types.FibPathNhProto {
	if ip.Is4() {
		return fib_types.FIB_API_PATH_NH_PROTO_IP4
	}
	return fib_types.FIB_API_PATH_NH_PROTO_IP6
}
