package vault

import (
	"crypto/ed25519"
	"encoding/binary"
	"strconv"

	"github.com/mr-tron/base58"
)

func putDiscriminator(dst []byte, src []byte, offset *int) {
	copy(dst[*offset:], src)
	*offset += 8
}
func getDiscriminator(src []byte, dst *[]byte, offset *int) {
	*dst = make([]byte, 8)
	copy(*dst, src[*offset:])
	*offset += 8
}

func putKey(dst []byte, v ed25519.PublicKey, offset *int) {
	copy(dst[*offset:], v)
	*offset += ed25519.PublicKeySize
}
func getKey(src []byte, dst *ed25519.PublicKey, offset *int) {
	*dst = make([]byte, ed25519.PublicKeySize)
	copy(*dst, src[*offset:])
	*offset += ed25519.PublicKeySize
}

// Borsh options are a presence byte followed by the value, which is only
// written when present.
func putOptionalKey(dst []byte, v ed25519.PublicKey, offset *int) {
	if len(v) == 0 {
		putBool(dst, false, offset)
		return
	}
	putBool(dst, true, offset)
	putKey(dst, v, offset)
}
func getOptionalKey(src []byte, dst *ed25519.PublicKey, offset *int) {
	var isSet bool
	getBool(src, &isSet, offset)
	if !isSet {
		*dst = nil
		return
	}
	getKey(src, dst, offset)
}

func putBool(dst []byte, v bool, offset *int) {
	if v {
		putUint8(dst, 1, offset)
	} else {
		putUint8(dst, 0, offset)
	}
}
func getBool(src []byte, dst *bool, offset *int) {
	*dst = src[*offset] != 0
	*offset += 1
}

func putUint8(dst []byte, v uint8, offset *int) {
	dst[*offset] = v
	*offset += 1
}
func getUint8(src []byte, dst *uint8, offset *int) {
	*dst = src[*offset]
	*offset += 1
}

func putUint16(dst []byte, v uint16, offset *int) {
	binary.LittleEndian.PutUint16(dst[*offset:], v)
	*offset += 2
}
func getUint16(src []byte, dst *uint16, offset *int) {
	*dst = binary.LittleEndian.Uint16(src[*offset:])
	*offset += 2
}

func putUint64(dst []byte, v uint64, offset *int) {
	binary.LittleEndian.PutUint64(dst[*offset:], v)
	*offset += 8
}
func getUint64(src []byte, dst *uint64, offset *int) {
	*dst = binary.LittleEndian.Uint64(src[*offset:])
	*offset += 8
}

func putOptionalUint64(dst []byte, v *uint64, offset *int) {
	if v == nil {
		putBool(dst, false, offset)
		return
	}
	putBool(dst, true, offset)
	putUint64(dst, *v, offset)
}
func getOptionalUint64(src []byte, dst **uint64, offset *int) {
	var isSet bool
	getBool(src, &isSet, offset)
	if !isSet {
		*dst = nil
		return
	}
	var v uint64
	getUint64(src, &v, offset)
	*dst = &v
}

func uint16ToBytes(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func optionalUint64String(v *uint64) string {
	if v == nil {
		return "<nil>"
	}
	return strconv.FormatUint(*v, 10)
}

func optionalKeyString(v ed25519.PublicKey) string {
	if len(v) == 0 {
		return "<nil>"
	}
	return base58.Encode(v)
}

func mustBase58Decode(value string) []byte {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}
