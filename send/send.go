// Package send is the plain configuration record and entry point a
// DHT request builder hands to the codec: it carries only the flags
// that matter to the surrounding send state machine (buffer vs.
// object payload, cancel-on-finish, streaming) and never touches the
// wire format itself.
package send

import (
	"errors"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dhtproto/wirecodec/catalog"
	"github.com/dhtproto/wirecodec/dhtwire"
	"github.com/dhtproto/wirecodec/message"
	"github.com/dhtproto/wirecodec/peerid"
)

// ErrPeerShutdown is returned by Direct once Shutdown has been called:
// a stable failure result instead of the reference's shared singleton
// "peer is shutting down" future.
var ErrPeerShutdown = errors.New("send: peer is shutting down")

var shuttingDown int32

// Shutdown marks the process as shutting down; subsequent calls to
// Direct return ErrPeerShutdown immediately without touching the
// codec or catalog.
func Shutdown() {
	atomic.StoreInt32(&shuttingDown, 1)
}

// Reset clears the shutdown flag. Exists for tests that exercise
// Shutdown's effect without leaking state into later tests.
func Reset() {
	atomic.StoreInt32(&shuttingDown, 0)
}

// isShuttingDown reports the current lifecycle state.
func isShuttingDown() bool {
	return atomic.LoadInt32(&shuttingDown) != 0
}

// Config is the plain configuration a builder supplies to Direct
// alongside the populated Message. These fields never affect the wire
// format; they affect the surrounding DHT send state machine.
type Config struct {
	Buffer         []byte
	Object         interface{}
	CancelOnFinish bool
	Streaming      bool
	LocationKey    peerid.PeerId
}

// IsRaw reports whether this config carries a raw buffer payload
// rather than an opaque object the builder will serialize itself.
func (c Config) IsRaw() bool {
	return c.Object == nil
}

// Result is the outcome of a Direct call: either the encoded datagram
// bytes, or an error if construction failed before any bytes were
// produced. RequestId lets a caller correlate this call with whatever
// it logs or tracks asynchronously while waiting on a reply.
type Result struct {
	RequestId uuid.UUID
	Done      bool
	Bytes     []byte
	Err       error
}

// Direct sets msg.Payload to cfg.Buffer when cfg is raw (for an Object
// config, msg.Payload is left as the builder set it), encodes msg via
// codec, and returns
// the resulting datagram. It is the one DHT-facing entry point that
// bridges the builder's configuration record to the codec.
func Direct(cfg Config, codec *dhtwire.Codec, manager catalog.Manager, msg *message.Message, encodeForIPv4 bool) Result {
	requestId := uuid.New()

	if isShuttingDown() {
		return Result{RequestId: requestId, Err: ErrPeerShutdown}
	}

	if cfg.IsRaw() {
		msg.Payload = cfg.Buffer
	}

	buf, err := codec.Encode(nil, msg, manager, encodeForIPv4)
	if err != nil {
		return Result{RequestId: requestId, Err: err}
	}

	return Result{RequestId: requestId, Done: true, Bytes: buf}
}
