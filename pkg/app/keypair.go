package app

import (
	"crypto/ed25519"
	"encoding/json"

	"github.com/pkg/errors"
)

// LoadKeypair loads a Solana CLI keypair file: a JSON array of the 64 byte
// ed25519 private key.
func LoadKeypair(fileURL string) (ed25519.PrivateKey, error) {
	data, err := LoadFile(fileURL)
	if err != nil {
		return nil, err
	}
	return ParseKeypair(data)
}

func ParseKeypair(data []byte) (ed25519.PrivateKey, error) {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, errors.Wrap(err, "keypair must be a json array of bytes")
	}
	if len(ints) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("keypair must be %d bytes, got %d", ed25519.PrivateKeySize, len(ints))
	}

	raw := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, errors.Errorf("keypair byte %d out of range: %d", i, v)
		}
		raw[i] = byte(v)
	}

	key := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if !key.Equal(ed25519.PrivateKey(raw)) {
		return nil, errors.New("keypair public key doesn't match its seed")
	}
	return key, nil
}
