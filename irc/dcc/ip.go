package dcc

import (
	"encoding/binary"
	"net"
	"strconv"
)

// ipToUint32String renders an IPv4 address as the unsigned 32-bit value
// in host byte order, decimal, the format classical DCC clients
// expect, and the one original_source's use of inet_addr produces.
// This pins that choice explicitly rather than leaving it to the
// platform's default network byte order.
func ipToUint32String(ip net.IP) string {
	v4 := ip.To4()
	if v4 == nil {
		v4 = net.IPv4(127, 0, 0, 1).To4()
	}
	n := binary.NativeEndian.Uint32(v4)
	return strconv.FormatUint(uint64(n), 10)
}
