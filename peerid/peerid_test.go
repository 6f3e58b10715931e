package peerid

import (
	"encoding/binary"
	"math/rand"
	"testing"
)

func TestXOROverlapRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 256; i++ {
		var sender, recipient PeerId
		rng.Read(sender[:])
		rng.Read(recipient[:])

		packed := XOROverlapBy4(sender, recipient)

		gotSender, gotShort := DeXOROverlapBy4(recipient, packed)
		if gotSender != sender {
			t.Fatalf("iteration %d: recovered sender %s, want %s", i, gotSender, sender)
		}

		wantShort := ShortId(binary.BigEndian.Uint32(sender[0:4]))
		if gotShort != wantShort {
			t.Fatalf("iteration %d: short id %x, want %x", i, gotShort, wantShort)
		}
		if RecipientShort(packed) != ShortId(binary.BigEndian.Uint32(recipient[28:32])) {
			t.Fatalf("iteration %d: recipient short id mismatch", i)
		}
	}
}

func TestXOROverlapLayout(t *testing.T) {
	var sender, recipient PeerId
	for i := range sender {
		sender[i] = 0x01
	}
	for i := range recipient {
		recipient[i] = 0x02
	}

	packed := XOROverlapBy4(sender, recipient)

	if packed[0] != 0x01 || packed[1] != 0x01 || packed[2] != 0x01 || packed[3] != 0x01 {
		t.Fatalf("bytes 0..3 should be plain sender, got % x", packed[0:4])
	}
	for i := 4; i < 32; i++ {
		if packed[i] != (0x01 ^ 0x02) {
			t.Fatalf("byte %d should be sender XOR recipient, got %x", i, packed[i])
		}
	}
	if packed[32] != 0x02 || packed[33] != 0x02 || packed[34] != 0x02 || packed[35] != 0x02 {
		t.Fatalf("bytes 32..35 should be plain recipient, got % x", packed[32:36])
	}
}

func TestIsZero(t *testing.T) {
	var id PeerId
	if !id.IsZero() {
		t.Fatal("zero-value PeerId should report IsZero")
	}
	id[10] = 1
	if id.IsZero() {
		t.Fatal("non-zero PeerId should not report IsZero")
	}
}
