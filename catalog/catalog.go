// Package catalog implements the PeerAddressManager contract the codec
// consumes to resolve identity hints to full addresses and private key
// material during encode and decode.
package catalog

import (
	"errors"
	"sync"

	"github.com/dhtproto/wirecodec/peeraddr"
	"github.com/dhtproto/wirecodec/peerid"
)

// ErrUnknownRecipient is returned when a short id has no registered
// entry; the caller must drop the datagram.
var ErrUnknownRecipient = errors.New("catalog: unknown recipient short id")

// ErrUnknownSender is returned when a full PeerId has no registered
// entry; on encode this is the caller's bug.
var ErrUnknownSender = errors.New("catalog: unknown sender id")

// Entry pairs a peer's address with the private key this node holds
// for it. PrivateKey is the zero value for entries this node only
// knows the public address of, not an identity it can act as.
type Entry struct {
	Address    peeraddr.PeerAddress
	PrivateKey [32]byte
}

// Manager is the PeerAddressManager contract: resolve a 32-bit short
// id (from the XOR-overlap pack) or a full PeerId to the registered
// PeerAddress and private key. Implementations must be safe for
// concurrent reads; the codec never mutates a Manager.
type Manager interface {
	GetPeerAddressFromShortId(short peerid.ShortId) (peeraddr.PeerAddress, [32]byte, error)
	GetPeerAddressFromId(id peerid.PeerId) (peeraddr.PeerAddress, [32]byte, error)
}

// Event reports a change to a Memory catalog's membership, consumed by
// statusapi to push updates over its websocket stream.
type Event struct {
	Added bool
	Id    peerid.PeerId
}

// Memory is an in-memory, sync.RWMutex-guarded Manager. It is the test
// double used by the codec's own test suite and is suitable for a
// short-lived node that does not need to persist known peers.
type Memory struct {
	mutex   sync.RWMutex
	byFull  map[peerid.PeerId]Entry
	byShort map[peerid.ShortId]peerid.PeerId

	subMutex    sync.Mutex
	subscribers map[chan Event]struct{}
}

// NewMemory creates an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{
		byFull:      make(map[peerid.PeerId]Entry),
		byShort:     make(map[peerid.ShortId]peerid.PeerId),
		subscribers: make(map[chan Event]struct{}),
	}
}

// Set registers or replaces the entry for a PeerId, indexing it by
// both its full id and its short id (the last 4 bytes, big-endian; see
// peerid.ShortOf).
func (m *Memory) Set(id peerid.PeerId, entry Entry) {
	entry.Address.Id = id
	entry.Address.HasId = true

	m.mutex.Lock()
	m.byFull[id] = entry
	m.byShort[peerid.ShortOf(id)] = id
	m.mutex.Unlock()

	m.broadcast(Event{Added: true, Id: id})
}

// Delete removes the entry for a PeerId from both indices.
func (m *Memory) Delete(id peerid.PeerId) {
	m.mutex.Lock()
	delete(m.byFull, id)
	delete(m.byShort, peerid.ShortOf(id))
	m.mutex.Unlock()

	m.broadcast(Event{Added: false, Id: id})
}

// Len reports the number of registered entries.
func (m *Memory) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.byFull)
}

// Counts reports the size of the full-id index and the short-id index
// separately. They normally move in lockstep, but the short-id index
// can lag or collide independently of the full-id index since it is
// keyed by a 32-bit hint rather than the full 32-byte id; exposing both
// lets an operator notice that divergence instead of only ever seeing
// one combined count.
func (m *Memory) Counts() (entriesFull, entriesShort int) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.byFull), len(m.byShort)
}

// Snapshot returns a copy of every registered entry, safe to read
// without holding the catalog's lock.
func (m *Memory) Snapshot() []Entry {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := make([]Entry, 0, len(m.byFull))
	for _, entry := range m.byFull {
		out = append(out, entry)
	}
	return out
}

// Subscribe registers a channel that receives an Event each time an
// entry is added or removed. The returned cancel function must be
// called to stop receiving and release the channel.
func (m *Memory) Subscribe() (events <-chan Event, cancel func()) {
	ch := make(chan Event, 16)

	m.subMutex.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMutex.Unlock()

	cancel = func() {
		m.subMutex.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.subMutex.Unlock()
	}
	return ch, cancel
}

// broadcast fans an event out to every live subscriber. A subscriber
// that isn't keeping up with its buffer simply misses the event
// rather than blocking the writer.
func (m *Memory) broadcast(ev Event) {
	m.subMutex.Lock()
	defer m.subMutex.Unlock()
	for ch := range m.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (m *Memory) GetPeerAddressFromShortId(short peerid.ShortId) (peeraddr.PeerAddress, [32]byte, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	full, ok := m.byShort[short]
	if !ok {
		return peeraddr.PeerAddress{}, [32]byte{}, ErrUnknownRecipient
	}
	entry, ok := m.byFull[full]
	if !ok {
		return peeraddr.PeerAddress{}, [32]byte{}, ErrUnknownRecipient
	}
	return entry.Address, entry.PrivateKey, nil
}

func (m *Memory) GetPeerAddressFromId(id peerid.PeerId) (peeraddr.PeerAddress, [32]byte, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	entry, ok := m.byFull[id]
	if !ok {
		return peeraddr.PeerAddress{}, [32]byte{}, ErrUnknownSender
	}
	return entry.Address, entry.PrivateKey, nil
}
