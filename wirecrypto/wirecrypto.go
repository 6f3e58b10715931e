// Package wirecrypto is the codec's crypto primitives façade: Curve25519
// key agreement, Ed25519 signing/verification and a ChaCha20 stream
// cipher, each exposed as a small function so the codec can be tested
// against fixed key material instead of real randomness.
package wirecrypto

import (
	"crypto/ed25519"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/curve25519"
)

// KeySize is the length in bytes of a Curve25519/Ed25519 key, a PeerId,
// and the raw X25519 shared secret used directly as the ChaCha20 key.
const KeySize = 32

// SignatureSize is the length in bytes of an Ed25519 signature.
const SignatureSize = ed25519.SignatureSize

// ErrCryptoFailure wraps any failure from a primitive (agreement,
// encryption, signing) that the codec surfaces as CryptoFailure.
var ErrCryptoFailure = errors.New("wirecrypto: crypto primitive failure")

// KeyPair is an ephemeral Curve25519 key pair, generated fresh per
// encode call and discarded after the shared secret is derived.
type KeyPair struct {
	Public  [KeySize]byte
	Private [KeySize]byte
}

// GenerateKeyPair creates a fresh ephemeral key pair by reading a
// private scalar from rand and deriving the matching public point.
func GenerateKeyPair(rand io.Reader) (KeyPair, error) {
	var kp KeyPair
	if _, err := io.ReadFull(rand, kp.Private[:]); err != nil {
		return KeyPair{}, ErrCryptoFailure
	}
	pub, err := curve25519.X25519(kp.Private[:], curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, ErrCryptoFailure
	}
	copy(kp.Public[:], pub)
	return kp, nil
}

// SharedSecret derives the raw X25519 shared secret between a local
// private scalar and a remote public point. The result is used
// directly as the ChaCha20 key; callers must not reuse it across
// messages (see the encode/decode 0-RTT rule).
func SharedSecret(localPrivate, remotePublic [KeySize]byte) (secret [KeySize]byte, err error) {
	out, err := curve25519.X25519(localPrivate[:], remotePublic[:])
	if err != nil {
		return secret, ErrCryptoFailure
	}
	copy(secret[:], out)
	return secret, nil
}

// zeroNonce is the fixed all-zero ChaCha20 nonce. Safe only because
// every call uses a key that is itself one-shot: a fresh ephemeral key
// pair per message yields a fresh shared secret per message.
var zeroNonce [chacha20.NonceSize]byte

// XORKeyStream encrypts or decrypts src in place into dst using
// ChaCha20 under key with the fixed zero nonce. dst and src may be the
// same slice. The caller is responsible for the one-shot-key
// invariant; this façade does not track key reuse.
func XORKeyStream(key [KeySize]byte, dst, src []byte) error {
	cipher, err := chacha20.NewUnauthenticatedCipher(key[:], zeroNonce[:])
	if err != nil {
		return ErrCryptoFailure
	}
	cipher.XORKeyStream(dst, src)
	return nil
}

// Sign produces an Ed25519 signature over message using privateKey as
// the 32-byte seed for an Ed25519 private key.
func Sign(privateKey [KeySize]byte, message []byte) [SignatureSize]byte {
	signer := ed25519.NewKeyFromSeed(privateKey[:])
	var sig [SignatureSize]byte
	copy(sig[:], ed25519.Sign(signer, message))
	return sig
}

// Verify reports whether sig is a valid Ed25519 signature over message
// under publicKey. publicKey is the 32-byte PeerId used directly as an
// Ed25519 public key.
func Verify(publicKey [KeySize]byte, message []byte, sig [SignatureSize]byte) bool {
	return ed25519.Verify(ed25519.PublicKey(publicKey[:]), message, sig[:])
}
