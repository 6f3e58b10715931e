// Package peeraddr implements the compact wire encoding of a peer's
// network endpoint: IP address, listening port, NAT-hint ports reported
// by the peer, and optional embedded peer id.
package peeraddr

import (
	"encoding/binary"
	"errors"
	"net"

	"github.com/dhtproto/wirecodec/peerid"
)

const (
	flagIPv4   = 1 << 0
	flagIPv6   = 1 << 1
	flagPeerId = 1 << 2

	featureIPv4Listen = 1 << 0
	featureIPv6Listen = 1 << 1
)

// fixedSize is flags(1) + features(1) + reserved(2) + port(2) +
// portReportedInternal(2) + portReportedExternal(2), before the address
// bytes and the optional peer id.
const fixedSize = 1 + 1 + 2 + 2 + 2 + 2

// SizeNoPeerID4 is the encoded size of an IPv4 PeerAddress without its id.
const SizeNoPeerID4 = fixedSize + net.IPv4len

// SizeNoPeerID6 is the encoded size of an IPv6 PeerAddress without its id.
const SizeNoPeerID6 = fixedSize + net.IPv6len

// MaxSizeNoPeerID is the largest size of a PeerAddress encoded without its
// id, used to size scratch buffers.
const MaxSizeNoPeerID = SizeNoPeerID6

// ErrMalformed is returned when a buffer does not contain a valid
// PeerAddress encoding.
var ErrMalformed = errors.New("peeraddr: malformed peer address")

// PeerAddress is a peer's network endpoint plus feature flags.
type PeerAddress struct {
	Id    peerid.PeerId
	HasId bool

	IP                   net.IP
	Port                 uint16
	PortReportedInternal uint16
	PortReportedExternal uint16

	FeatureIPv4Listen bool
	FeatureIPv6Listen bool
}

// EncodedSize returns the size this address would occupy on the wire
// given whether the peer id is included.
func (a PeerAddress) EncodedSize(skipPeerId bool) int {
	size := fixedSize
	if a.IP.To4() != nil {
		size += net.IPv4len
	} else {
		size += net.IPv6len
	}
	if !skipPeerId {
		size += peerid.Size
	}
	return size
}

// Encode appends the wire encoding of the address to buf and returns the
// extended slice. encodeForIPv4 selects which of the two mutually
// exclusive family flags is set on the wire and which form of the IP is
// written; it must match the address's actual IP family, since the IP
// bytes are taken from that form (the codec passes its own caller's
// encodeForIPv4 through unchanged).
func (a PeerAddress) Encode(buf []byte, skipPeerId bool, encodeForIPv4 bool) []byte {
	var flags byte
	if encodeForIPv4 {
		flags |= flagIPv4
	} else {
		flags |= flagIPv6
	}
	if !skipPeerId {
		flags |= flagPeerId
	}
	buf = append(buf, flags)

	if !skipPeerId {
		buf = append(buf, a.Id[:]...)
	}

	var features byte
	if a.FeatureIPv4Listen {
		features |= featureIPv4Listen
	}
	if a.FeatureIPv6Listen {
		features |= featureIPv6Listen
	}
	buf = append(buf, features)

	var scratch [2]byte
	binary.BigEndian.PutUint16(scratch[:], 0) // reserved
	buf = append(buf, scratch[:]...)

	binary.BigEndian.PutUint16(scratch[:], a.Port)
	buf = append(buf, scratch[:]...)
	binary.BigEndian.PutUint16(scratch[:], a.PortReportedInternal)
	buf = append(buf, scratch[:]...)
	binary.BigEndian.PutUint16(scratch[:], a.PortReportedExternal)
	buf = append(buf, scratch[:]...)

	if encodeForIPv4 {
		buf = append(buf, a.IP.To4()...)
	} else {
		buf = append(buf, a.IP.To16()...)
	}

	return buf
}

// Decode parses a PeerAddress from data, returning the number of bytes
// consumed. skipPeerId is not consulted: whether a peer id is present,
// and which address family follows, is read from the flags byte.
func Decode(data []byte, skipPeerId bool) (addr PeerAddress, consumed int, err error) {
	if len(data) < 1 {
		return PeerAddress{}, 0, ErrMalformed
	}

	flags := data[0]
	pos := 1

	hasId := flags&flagPeerId != 0
	if hasId {
		if len(data) < pos+peerid.Size {
			return PeerAddress{}, 0, ErrMalformed
		}
		copy(addr.Id[:], data[pos:pos+peerid.Size])
		addr.HasId = true
		pos += peerid.Size
	}

	if len(data) < pos+1+2+2+2+2 {
		return PeerAddress{}, 0, ErrMalformed
	}

	features := data[pos]
	addr.FeatureIPv4Listen = features&featureIPv4Listen != 0
	addr.FeatureIPv6Listen = features&featureIPv6Listen != 0
	pos++

	pos += 2 // reserved

	addr.Port = binary.BigEndian.Uint16(data[pos : pos+2])
	pos += 2
	addr.PortReportedInternal = binary.BigEndian.Uint16(data[pos : pos+2])
	pos += 2
	addr.PortReportedExternal = binary.BigEndian.Uint16(data[pos : pos+2])
	pos += 2

	isIPv4 := flags&flagIPv4 != 0
	addrLen := net.IPv6len
	if isIPv4 {
		addrLen = net.IPv4len
	}
	if len(data) < pos+addrLen {
		return PeerAddress{}, 0, ErrMalformed
	}
	ip := make(net.IP, addrLen)
	copy(ip, data[pos:pos+addrLen])
	addr.IP = ip
	pos += addrLen

	return addr, pos, nil
}

// UDPAddr returns the net.UDPAddr for this endpoint.
func (a PeerAddress) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: a.IP, Port: int(a.Port)}
}
