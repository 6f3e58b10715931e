package catalog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/akrylysov/pogreb"
	"lukechampine.com/blake3"

	"github.com/dhtproto/wirecodec/peeraddr"
	"github.com/dhtproto/wirecodec/peerid"
)

// checksumSize is the length of the blake3 digest guarding each
// persisted record against on-disk corruption; pogreb itself does not
// checksum values.
const checksumSize = 32

func checksum(data []byte) [checksumSize]byte {
	return blake3.Sum256(data)
}

// recordVersion is the leading byte of a persisted entry, bumped if
// the on-disk layout ever changes.
const recordVersion = 1

// Pogreb is a crash-consistent, disk-backed Manager for a long-running
// node: known peers survive a restart instead of needing to be
// rediscovered. It keeps the short-id index in memory, rebuilt from
// disk on open, since the short id is a deterministic function of the
// full id.
type Pogreb struct {
	mutex   sync.Mutex
	db      *pogreb.DB
	byShort map[peerid.ShortId]peerid.PeerId
}

// OpenPogreb opens (creating if necessary) a persistent catalog at
// filename and rebuilds its in-memory short-id index.
func OpenPogreb(filename string) (*Pogreb, error) {
	pogreb.SetLogger(log.New(io.Discard, "", 0))

	db, err := pogreb.Open(filename, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: open pogreb: %w", err)
	}

	p := &Pogreb{db: db, byShort: make(map[peerid.ShortId]peerid.PeerId)}

	it := db.Items()
	for {
		key, _, err := it.Next()
		if err == pogreb.ErrIterationDone {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: rebuild short index: %w", err)
		}
		var id peerid.PeerId
		if len(key) == peerid.Size {
			copy(id[:], key)
			p.byShort[peerid.ShortOf(id)] = id
		}
	}

	return p, nil
}

// Close releases the underlying database file.
func (p *Pogreb) Close() error {
	return p.db.Close()
}

// Set persists the entry for id, keyed by the full PeerId, and updates
// the in-memory short-id index.
func (p *Pogreb) Set(id peerid.PeerId, entry Entry) error {
	entry.Address.Id = id
	entry.Address.HasId = true

	record := encodeRecord(entry)

	p.mutex.Lock()
	defer p.mutex.Unlock()
	if err := p.db.Put(id[:], record); err != nil {
		return fmt.Errorf("catalog: put: %w", err)
	}
	p.byShort[peerid.ShortOf(id)] = id
	return nil
}

// Delete removes the entry for id from disk and the short-id index.
func (p *Pogreb) Delete(id peerid.PeerId) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if err := p.db.Delete(id[:]); err != nil {
		return fmt.Errorf("catalog: delete: %w", err)
	}
	delete(p.byShort, peerid.ShortOf(id))
	return nil
}

// Len reports the number of persisted entries.
func (p *Pogreb) Len() int {
	return int(p.db.Count())
}

func (p *Pogreb) GetPeerAddressFromShortId(short peerid.ShortId) (peeraddr.PeerAddress, [32]byte, error) {
	p.mutex.Lock()
	full, ok := p.byShort[short]
	p.mutex.Unlock()
	if !ok {
		return peeraddr.PeerAddress{}, [32]byte{}, ErrUnknownRecipient
	}
	return p.GetPeerAddressFromId(full)
}

func (p *Pogreb) GetPeerAddressFromId(id peerid.PeerId) (peeraddr.PeerAddress, [32]byte, error) {
	value, err := p.db.Get(id[:])
	if err != nil || value == nil {
		return peeraddr.PeerAddress{}, [32]byte{}, ErrUnknownSender
	}
	entry, err := decodeRecord(value)
	if err != nil {
		return peeraddr.PeerAddress{}, [32]byte{}, ErrUnknownSender
	}
	return entry.Address, entry.PrivateKey, nil
}

// encodeRecord serializes an Entry as: version byte, 2-byte length
// prefix of the address encoding, PeerAddress wire encoding (with its
// peer id included), private key (32 bytes), and a trailing blake3
// checksum over everything before it, guarding against partial writes
// surviving a crash.
func encodeRecord(entry Entry) []byte {
	addrBuf := entry.Address.Encode(nil, false, entry.Address.IP.To4() != nil)

	buf := make([]byte, 0, 1+2+len(addrBuf)+32+checksumSize)
	buf = append(buf, recordVersion)

	var lenPrefix [2]byte
	binary.BigEndian.PutUint16(lenPrefix[:], uint16(len(addrBuf)))
	buf = append(buf, lenPrefix[:]...)

	buf = append(buf, addrBuf...)
	buf = append(buf, entry.PrivateKey[:]...)

	sum := checksum(buf)
	buf = append(buf, sum[:]...)
	return buf
}

func decodeRecord(data []byte) (Entry, error) {
	if len(data) < 1+2+checksumSize || data[0] != recordVersion {
		return Entry{}, fmt.Errorf("catalog: unsupported record version")
	}

	body := data[:len(data)-checksumSize]
	wantSum := checksum(body)
	if !bytes.Equal(data[len(data)-checksumSize:], wantSum[:]) {
		return Entry{}, fmt.Errorf("catalog: record checksum mismatch")
	}

	addrLen := int(binary.BigEndian.Uint16(body[1:3]))
	pos := 3
	if len(body) < pos+addrLen+32 {
		return Entry{}, fmt.Errorf("catalog: truncated record")
	}

	addr, _, err := peeraddr.Decode(body[pos:pos+addrLen], false)
	if err != nil {
		return Entry{}, err
	}
	pos += addrLen

	var entry Entry
	entry.Address = addr
	copy(entry.PrivateKey[:], body[pos:pos+32])
	return entry, nil
}
