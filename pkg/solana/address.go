package solana

import (
	"crypto/ed25519"
	"crypto/sha256"

	"github.com/jdgcs/ed25519/edwards25519"
	"github.com/pkg/errors"
)

const (
	maxSeeds      = 16
	maxSeedLength = 32

	pdaMarker = "ProgramDerivedAddress"
)

var (
	ErrTooManySeeds          = errors.New("too many seeds")
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")
	ErrInvalidPublicKey      = errors.New("invalid public key")
	ErrBumpSeedExhausted     = errors.New("unable to find a viable program address bump seed")
)

// onCurve reports whether key decompresses to an ed25519 point, in which case
// someone could hold its private key. The standard library keeps its point
// type internal, hence the edwards25519 fork.
var onCurve = func(key *[32]byte) bool {
	var point edwards25519.ExtendedGroupElement
	return point.FromBytes(key)
}

// CreateProgramAddress derives sha256(seeds || program || marker). Hashes
// that land on the curve are rejected with ErrInvalidPublicKey.
//
// Reference: https://github.com/solana-labs/solana/blob/master/sdk/program/src/pubkey.rs
func CreateProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	if len(seeds) > maxSeeds {
		return nil, ErrTooManySeeds
	}

	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > maxSeedLength {
			return nil, ErrMaxSeedLengthExceeded
		}
		h.Write(seed)
	}
	h.Write(program)
	h.Write([]byte(pdaMarker))

	var key [32]byte
	h.Sum(key[:0])
	if onCurve(&key) {
		return nil, ErrInvalidPublicKey
	}
	return key[:], nil
}

// FindProgramAddressAndBump returns the first off-curve address found by
// appending a bump seed to seeds, counting down from 255.
func FindProgramAddressAndBump(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, uint8, error) {
	bump := []byte{0}
	withBump := append(append(make([][]byte, 0, len(seeds)+1), seeds...), bump)

	for b := 255; b >= 0; b-- {
		bump[0] = byte(b)

		address, err := CreateProgramAddress(program, withBump...)
		switch {
		case err == nil:
			return address, bump[0], nil
		case err != ErrInvalidPublicKey:
			return nil, 0, err
		}
	}
	return nil, 0, ErrBumpSeedExhausted
}

// FindProgramAddress is FindProgramAddressAndBump without the bump.
func FindProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	address, _, err := FindProgramAddressAndBump(program, seeds...)
	return address, err
}
