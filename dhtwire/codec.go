// Package dhtwire implements the datagram codec: Encode assembles a
// signed, encrypted datagram from a Message; DecodeHeader triages an
// inbound datagram without decrypting it; DecodePayload derives the
// shared key, decrypts, and verifies the trailing signature.
package dhtwire

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/dhtproto/wirecodec/catalog"
	"github.com/dhtproto/wirecodec/message"
	"github.com/dhtproto/wirecodec/peeraddr"
	"github.com/dhtproto/wirecodec/peerid"
	"github.com/dhtproto/wirecodec/wirecrypto"
)

// HeaderSizeMin is the smallest possible datagram: the 76-byte fixed
// prefix, a 14-byte IPv4 inner PeerAddress, the type/options and
// command bytes with no payload, and the trailing 64-byte signature.
const HeaderSizeMin = 156

// fixedPrefixSize is versionAndType(4) + messageId(4) + XOR pack(36) +
// ephemeral public key(32).
const fixedPrefixSize = 4 + 4 + peerid.PackedSize + wirecrypto.KeySize

// headerConsumed is the number of bytes DecodeHeader reads: the fixed
// prefix up to but not including the ephemeral public key.
const headerConsumed = 4 + 4 + peerid.PackedSize

// SignatureSize is the length of the trailing Ed25519 signature.
const SignatureSize = wirecrypto.SignatureSize

// versionMask isolates the low 30 bits of versionAndType.
const versionMask = 0x3FFF_FFFF

// KCPFramer is the collaborator a caller may wire in to handle
// datagrams whose protocol type is a KCP variant. This module does
// not implement one; when absent, DecodeHeader returns ErrKCPDelegate
// for non-UDP datagrams instead.
type KCPFramer interface {
	DecodeHeader(data []byte) (message.MessageHeader, error)
}

// Codec is stateless and pure per call: safe to share across
// goroutines, provided each call owns its own buffers and Message.
type Codec struct {
	// Rand supplies randomness for fresh ephemeral key pairs. Nil
	// defaults to crypto/rand.Reader; tests inject a deterministic
	// source to pin exact wire bytes.
	Rand io.Reader

	// KCP, if set, receives datagrams whose protocol type is not UDP.
	KCP KCPFramer
}

func (c *Codec) rand() io.Reader {
	if c.Rand != nil {
		return c.Rand
	}
	return rand.Reader
}

// PeekProtocolType reads the 2-bit protocol type from the leading byte
// of a datagram without parsing or advancing anything; it is
// idempotent and safe to call before deciding whether to hand the
// datagram to DecodeHeader at all. The byte is treated as unsigned
// before shifting.
func PeekProtocolType(b byte) message.ProtocolType {
	return message.ProtocolType(b >> 6)
}

// protocolTypeOf extracts the protocol type from a full versionAndType
// word, equivalent to PeekProtocolType(data[0]).
func protocolTypeOf(versionAndType uint32) message.ProtocolType {
	return message.ProtocolType(versionAndType >> 30)
}

// Encode assembles a full datagram for msg into buf (which may be nil
// or a reused scratch slice) and returns the extended slice. A fresh
// ephemeral Curve25519 key pair is generated and stored on msg.
// encodeForIPv4 selects which IP family flag the inner sender address
// clears, matching the family of the outer transport datagram.
func (c *Codec) Encode(buf []byte, msg *message.Message, manager catalog.Manager, encodeForIPv4 bool) ([]byte, error) {
	if buf != nil && cap(buf) < HeaderSizeMin {
		return nil, ErrBufferTooSmall
	}

	ephemeral, err := wirecrypto.GenerateKeyPair(c.rand())
	if err != nil {
		return nil, ErrCryptoFailure
	}
	msg.Ephemeral = ephemeral

	start := len(buf)

	var word [4]byte
	versionAndType := uint32(msg.Protocol)<<30 | (msg.Version & versionMask)
	binary.BigEndian.PutUint32(word[:], versionAndType)
	buf = append(buf, word[:]...)

	binary.BigEndian.PutUint32(word[:], msg.MessageId)
	buf = append(buf, word[:]...)

	packed := peerid.XOROverlapBy4(msg.Sender.Id, msg.Recipient.Id)
	buf = append(buf, packed[:]...)

	buf = append(buf, ephemeral.Public[:]...)

	plaintext := msg.Sender.Encode(nil, true, encodeForIPv4)
	plaintext = append(plaintext, byte(msg.Type)<<4|(msg.Options&0x0F))
	plaintext = append(plaintext, msg.Command)
	plaintext = append(plaintext, msg.Payload...)

	var remotePublic [wirecrypto.KeySize]byte
	if msg.HasEphemeralRemote {
		remotePublic = msg.EphemeralRemote
	} else {
		remotePublic = msg.Recipient.Id
	}
	sharedKey, err := wirecrypto.SharedSecret(ephemeral.Private, remotePublic)
	if err != nil {
		return nil, ErrCryptoFailure
	}

	ciphertext := make([]byte, len(plaintext))
	if err := wirecrypto.XORKeyStream(sharedKey, ciphertext, plaintext); err != nil {
		return nil, ErrCryptoFailure
	}
	buf = append(buf, ciphertext...)

	_, senderPrivateKey, err := manager.GetPeerAddressFromId(msg.Sender.Id)
	if err != nil {
		return nil, ErrUnknownSender
	}
	sig := wirecrypto.Sign(senderPrivateKey, buf[start:])
	buf = append(buf, sig[:]...)

	return buf, nil
}

// DecodeHeader parses the fixed prefix of an inbound datagram and
// resolves the local recipient, without decrypting anything. data
// must be the full datagram starting at offset 0.
func (c *Codec) DecodeHeader(data []byte, manager catalog.Manager) (message.MessageHeader, error) {
	if len(data) < HeaderSizeMin {
		return message.MessageHeader{}, ErrBufferTooSmall
	}

	versionAndType := binary.BigEndian.Uint32(data[0:4])
	protocolType := protocolTypeOf(versionAndType)

	if protocolType != message.ProtocolUDP {
		if c.KCP != nil {
			return c.KCP.DecodeHeader(data)
		}
		return message.MessageHeader{}, fmt.Errorf("%w: protocol type %d", ErrKCPDelegate, protocolType)
	}

	version := versionAndType & versionMask
	messageId := binary.BigEndian.Uint32(data[4:8])

	var packed [peerid.PackedSize]byte
	copy(packed[:], data[8:8+peerid.PackedSize])

	recipientShort := peerid.RecipientShort(packed)
	senderShort := peerid.SenderShort(packed)

	recipientAddr, recipientPrivateKey, err := manager.GetPeerAddressFromShortId(peerid.ShortId(recipientShort))
	if err != nil {
		return message.MessageHeader{}, ErrUnknownRecipient
	}

	senderId, _ := peerid.DeXOROverlapBy4(recipientAddr.Id, packed)
	_ = senderShort // redundant with senderId[0:4]; kept for parity with the wire layout

	return message.MessageHeader{
		Version:    version,
		MessageId:  messageId,
		Recipient:  recipientAddr,
		PrivateKey: recipientPrivateKey,
		SenderId:   senderId,
	}, nil
}

// DecodePayload derives the shared key, decrypts the remainder of
// data, parses the inner sender address and message fields into msg,
// and verifies the trailing signature. data must be the same full
// datagram passed to DecodeHeader. ephLocal is non-nil when this node
// issued the original outbound request whose ephemeral private key
// should be used to decrypt a reply (the 0-RTT rule).
func (c *Codec) DecodePayload(data []byte, msg *message.Message, header message.MessageHeader, ephLocal *[wirecrypto.KeySize]byte, localSock, remoteSock *net.UDPAddr) error {
	if len(data) < HeaderSizeMin {
		return ErrBufferTooSmall
	}

	msg.RecipientSocket = localSock
	msg.SenderSocket = remoteSock
	msg.Version = header.Version
	msg.MessageId = header.MessageId
	msg.Recipient = header.Recipient

	var ephemeralRemote [wirecrypto.KeySize]byte
	copy(ephemeralRemote[:], data[headerConsumed:fixedPrefixSize])
	msg.EphemeralRemote = ephemeralRemote
	msg.HasEphemeralRemote = true

	priv := header.PrivateKey
	if ephLocal != nil {
		priv = *ephLocal
	}

	sharedKey, err := wirecrypto.SharedSecret(priv, ephemeralRemote)
	if err != nil {
		return ErrCryptoFailure
	}

	ciphertext := data[fixedPrefixSize : len(data)-SignatureSize]
	plaintext := make([]byte, len(ciphertext))
	if err := wirecrypto.XORKeyStream(sharedKey, plaintext, ciphertext); err != nil {
		return ErrCryptoFailure
	}

	senderAddr, consumed, err := peeraddr.Decode(plaintext, true)
	if err != nil {
		return ErrMalformedPeerAddress
	}
	senderAddr.Id = header.SenderId
	senderAddr.HasId = true
	if remoteSock != nil {
		senderAddr.IP = remoteSock.IP
		senderAddr.Port = uint16(remoteSock.Port)
	}
	msg.Sender = senderAddr

	if len(plaintext) < consumed+2 {
		return ErrMalformedPeerAddress
	}
	typeOptions := plaintext[consumed]
	msg.Type = message.Type(typeOptions >> 4)
	msg.Options = typeOptions & 0x0F
	msg.Command = plaintext[consumed+1]
	msg.Payload = plaintext[consumed+2:]

	var sig [SignatureSize]byte
	copy(sig[:], data[len(data)-SignatureSize:])

	msg.Done = wirecrypto.Verify(header.SenderId, data[:len(data)-SignatureSize], sig)
	return nil
}
