// Package fingerprint computes the content digest used to drop features that
// a source delivers more than once. It is a cheap equality filter, not a
// security primitive.
package fingerprint

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"

	"github.com/agentstation/atmap/pkg/features"
)

// Size is the length of a Digest in bytes.
const Size = 8

// Digest is the fixed-length fingerprint of one feature.
type Digest [Size]byte

// String returns the digest as 16 lowercase hex digits.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Of returns the digest of f's full serialized form. Properties serialize in
// a fixed key order, so equal content always yields equal digests.
func Of(f *features.Feature) (Digest, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return Digest{}, err
	}
	return Sum(data), nil
}

// MustOf is like Of but panics if f cannot be serialized. Features built
// from Value constructors always serialize.
func MustOf(f *features.Feature) Digest {
	d, err := Of(f)
	if err != nil {
		panic("fingerprint: " + err.Error())
	}
	return d
}

// Sum returns the digest of raw bytes.
func Sum(data []byte) Digest {
	var d Digest
	binary.BigEndian.PutUint64(d[:], xxhash.Sum64(data))
	return d
}
