// Package peerid implements the 256-bit peer identifier and the
// XOR-overlap packing used to carry two identities (sender, recipient)
// in 36 clear-text bytes at the front of a datagram.
package peerid

import "encoding/binary"

// Size is the length of a PeerId in bytes.
const Size = 32

// PackedSize is the length of an XOR-overlapped sender/recipient pair.
const PackedSize = 36

// PeerId is a 32-byte identifier. In this system the PeerId is also the
// peer's static Curve25519 public key.
type PeerId [Size]byte

// ShortId is the 32-bit demultiplexing hint extracted from a packed pair.
type ShortId uint32

// XOROverlapBy4 packs sender and recipient into 36 bytes. Bytes 0..31 are
// the sender id; bytes 4..35 are XORed with the recipient id, so bytes
// 4..31 carry sender XOR recipient, byte 0..3 stay plain sender, and bytes
// 32..35 stay plain recipient.
func XOROverlapBy4(sender, recipient PeerId) (packed [PackedSize]byte) {
	copy(packed[0:Size], sender[:])
	for i := 0; i < Size; i++ {
		packed[4+i] ^= recipient[i]
	}
	return packed
}

// DeXOROverlapBy4 recovers the sender PeerId given the local recipient's
// own PeerId and the packed 36-byte pair. senderShort is redundant with
// the recovered id (it is packed[0:4] as big-endian) but is returned
// separately so a receiver can key its inbound demux table cheaply
// without re-deriving it.
func DeXOROverlapBy4(recipient PeerId, packed [PackedSize]byte) (sender PeerId, senderShort ShortId) {
	for i := 0; i < Size; i++ {
		var recipientByte byte
		if i >= 4 {
			recipientByte = recipient[i-4]
		}
		sender[i] = packed[i] ^ recipientByte
	}
	senderShort = ShortId(binary.BigEndian.Uint32(packed[0:4]))
	return sender, senderShort
}

// ShortOf returns the 32-bit short id of an id on its own: the last 4
// bytes, big-endian. This is what ends up in clear at offset 32 of a
// pack where id is the recipient (see RecipientShort), so a catalog
// indexes entries by it to resolve the recipient hint of an inbound
// datagram without packing anything.
func ShortOf(id PeerId) ShortId {
	return ShortId(binary.BigEndian.Uint32(id[Size-4 : Size]))
}

// RecipientShort returns the 32-bit recipient hint (offset 32) from a
// packed pair.
func RecipientShort(packed [PackedSize]byte) ShortId {
	return ShortId(binary.BigEndian.Uint32(packed[32:36]))
}

// SenderShort returns the 32-bit sender hint (offset 0) from a packed
// pair without reconstructing the full id.
func SenderShort(packed [PackedSize]byte) ShortId {
	return ShortId(binary.BigEndian.Uint32(packed[0:4]))
}

// String returns the hex representation, mainly for logging.
func (id PeerId) String() string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 0, Size*2)
	for _, b := range id {
		out = append(out, hexDigits[b>>4], hexDigits[b&0x0F])
	}
	return string(out)
}

// IsZero reports whether the id is all-zero, i.e. unset.
func (id PeerId) IsZero() bool {
	for _, b := range id {
		if b != 0 {
			return false
		}
	}
	return true
}
