package dhtwire

import "errors"

// ErrBufferTooSmall is returned when an encode or decode buffer is
// shorter than HeaderSizeMin. It is always the caller's bug.
var ErrBufferTooSmall = errors.New("dhtwire: buffer smaller than minimum frame size")

// ErrUnknownRecipient is returned by DecodeHeader when the recipient
// short id has no registered catalog entry. The datagram is not for
// this node, or its key material was lost; the caller should drop it.
var ErrUnknownRecipient = errors.New("dhtwire: unknown recipient")

// ErrUnknownSender is returned by Encode when the sender's own id has
// no registered catalog entry to sign with. Always the caller's bug.
var ErrUnknownSender = errors.New("dhtwire: unknown sender")

// ErrCryptoFailure wraps any X25519/ChaCha20/Ed25519 primitive error.
var ErrCryptoFailure = errors.New("dhtwire: crypto primitive failure")

// ErrMalformedPeerAddress is returned by DecodePayload when the inner
// PeerAddress cannot be parsed from the decrypted plaintext.
var ErrMalformedPeerAddress = errors.New("dhtwire: malformed inner peer address")

// ErrKCPDelegate is returned by DecodeHeader when the datagram's
// protocol type is a KCP variant and no KCPFramer collaborator is
// configured on the Codec. The core codec only implements UDP
// framing; KCP framing is out of scope for this module.
var ErrKCPDelegate = errors.New("dhtwire: datagram requires KCP delegation")
