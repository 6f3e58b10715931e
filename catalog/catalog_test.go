package catalog

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/dhtproto/wirecodec/peeraddr"
	"github.com/dhtproto/wirecodec/peerid"
)

func sampleEntry(b byte) (peerid.PeerId, Entry) {
	var id peerid.PeerId
	for i := range id {
		id[i] = b
	}
	var priv [32]byte
	for i := range priv {
		priv[i] = b ^ 0xFF
	}
	return id, Entry{
		Address: peeraddr.PeerAddress{
			IP:   net.ParseIP("127.0.0.1").To4(),
			Port: 9000 + uint16(b),
		},
		PrivateKey: priv,
	}
}

func TestMemoryLookup(t *testing.T) {
	m := NewMemory()
	id, entry := sampleEntry(7)
	m.Set(id, entry)

	gotAddr, gotPriv, err := m.GetPeerAddressFromId(id)
	if err != nil {
		t.Fatalf("lookup by id: %v", err)
	}
	if gotPriv != entry.PrivateKey || !gotAddr.IP.Equal(entry.Address.IP) {
		t.Fatalf("lookup by id mismatch: %+v", gotAddr)
	}

	gotAddr, gotPriv, err = m.GetPeerAddressFromShortId(peerid.ShortOf(id))
	if err != nil {
		t.Fatalf("lookup by short id: %v", err)
	}
	if gotPriv != entry.PrivateKey || gotAddr.Id != id {
		t.Fatalf("short id lookup mismatch: %+v", gotAddr)
	}

	m.Delete(id)
	if _, _, err := m.GetPeerAddressFromId(id); err != ErrUnknownSender {
		t.Fatalf("expected ErrUnknownSender after delete, got %v", err)
	}
}

func TestMemoryUnknown(t *testing.T) {
	m := NewMemory()
	var id peerid.PeerId
	if _, _, err := m.GetPeerAddressFromId(id); err != ErrUnknownSender {
		t.Fatalf("expected ErrUnknownSender, got %v", err)
	}
	if _, _, err := m.GetPeerAddressFromShortId(0); err != ErrUnknownRecipient {
		t.Fatalf("expected ErrUnknownRecipient, got %v", err)
	}
}

func TestPogrebParityWithMemory(t *testing.T) {
	dir := t.TempDir()

	mem := NewMemory()
	disk, err := OpenPogreb(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("open pogreb: %v", err)
	}
	defer disk.Close()

	entries := make(map[peerid.PeerId]Entry)
	for b := byte(1); b <= 5; b++ {
		id, entry := sampleEntry(b)
		entries[id] = entry
		mem.Set(id, entry)
		if err := disk.Set(id, entry); err != nil {
			t.Fatalf("disk set: %v", err)
		}
	}

	for id, entry := range entries {
		memAddr, memPriv, err := mem.GetPeerAddressFromId(id)
		if err != nil {
			t.Fatalf("memory lookup: %v", err)
		}
		diskAddr, diskPriv, err := disk.GetPeerAddressFromId(id)
		if err != nil {
			t.Fatalf("disk lookup: %v", err)
		}
		if memPriv != diskPriv || memPriv != entry.PrivateKey {
			t.Fatalf("private key mismatch for entry %v", id)
		}
		if !memAddr.IP.Equal(diskAddr.IP) || memAddr.Port != diskAddr.Port {
			t.Fatalf("address mismatch: memory %+v, disk %+v", memAddr, diskAddr)
		}

		memByShort, _, err := mem.GetPeerAddressFromShortId(peerid.ShortOf(id))
		if err != nil {
			t.Fatalf("memory short lookup: %v", err)
		}
		diskByShort, _, err := disk.GetPeerAddressFromShortId(peerid.ShortOf(id))
		if err != nil {
			t.Fatalf("disk short lookup: %v", err)
		}
		if memByShort.Id != diskByShort.Id {
			t.Fatalf("short lookup id mismatch")
		}
	}

	if mem.Len() != disk.Len() {
		t.Fatalf("size mismatch: memory=%d disk=%d", mem.Len(), disk.Len())
	}
}
