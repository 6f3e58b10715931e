// Package message defines the mutable carrier types that flow between
// the send builder, the codec, and the receiving application: Message
// itself and the triage-only MessageHeader produced midway through
// decode.
package message

import (
	"net"

	"github.com/dhtproto/wirecodec/peeraddr"
	"github.com/dhtproto/wirecodec/peerid"
	"github.com/dhtproto/wirecodec/wirecrypto"
)

// ProtocolType is the 2-bit protocol selector in the high bits of the
// first wire word.
type ProtocolType uint8

const (
	ProtocolUDP ProtocolType = iota
	ProtocolKCP
	ProtocolKCP2
	ProtocolKCP3
)

// Type is the 4-bit message type carried alongside 4 bits of options.
type Type uint8

const (
	TypeRequest Type = iota
	TypeAck
	TypeOK
)

// Message is the mutable carrier populated by a builder before encode,
// or by the codec's decode calls. A single Message instance owns its
// PeerAddresses and payload; it is not referenced from the catalog.
type Message struct {
	Protocol ProtocolType
	Version  uint32

	MessageId uint32

	Sender    peeraddr.PeerAddress
	Recipient peeraddr.PeerAddress

	Type    Type
	Options uint8
	Command uint8

	Payload []byte

	// Ephemeral is generated fresh per encode call; its private half
	// is used once for key agreement and then should be discarded.
	Ephemeral wirecrypto.KeyPair

	// EphemeralRemote is the peer's ephemeral public key: set by the
	// builder before encode for a reply (0-RTT rule), or populated by
	// decodePayload from the wire on receive.
	EphemeralRemote    [wirecrypto.KeySize]byte
	HasEphemeralRemote bool

	// Done is set by decodePayload: true iff the trailing Ed25519
	// signature verified over the received bytes.
	Done bool

	SenderSocket    *net.UDPAddr
	RecipientSocket *net.UDPAddr
}

// MessageHeader is the triage-only view produced by decodeHeader and
// consumed once by decodePayload, then discarded.
type MessageHeader struct {
	Version    uint32
	MessageId  uint32
	Recipient  peeraddr.PeerAddress
	PrivateKey [32]byte
	SenderId   peerid.PeerId
}
