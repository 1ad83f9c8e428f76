// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest computes the BLAKE3 content digests recorded in item
// metadata.
package digest

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Size is the digest length in bytes.
const Size = 32

// Digest is a BLAKE3-256 sum.
type Digest [Size]byte

// Sum returns the digest of data.
func Sum(data []byte) Digest {
	return blake3.Sum256(data)
}

// File streams the file at path through the hash and returns its
// digest and length.
func File(path string) (Digest, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, 0, fmt.Errorf("digest: %w", err)
	}
	defer file.Close()

	hasher := blake3.New()
	n, err := io.Copy(hasher, file)
	if err != nil {
		return Digest{}, 0, fmt.Errorf("digest: hashing %s: %w", path, err)
	}
	var sum Digest
	copy(sum[:], hasher.Sum(nil))
	return sum, n, nil
}

// String returns the lowercase hex encoding stored in metadata
// documents.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Parse decodes a hex digest as written by String.
func Parse(value string) (Digest, error) {
	var sum Digest
	decoded, err := hex.DecodeString(value)
	if err != nil {
		return sum, fmt.Errorf("digest: parsing %q: %w", value, err)
	}
	if len(decoded) != Size {
		return sum, fmt.Errorf("digest: %q is %d bytes, want %d", value, len(decoded), Size)
	}
	copy(sum[:], decoded)
	return sum, nil
}
