// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionTag identifies the algorithm applied to an item payload.
// Tag values are written into payload frames; changing them breaks
// existing stores.
type CompressionTag uint8

const (
	// CompressionNone stores payloads verbatim, without a frame.
	CompressionNone CompressionTag = 0

	// CompressionLZ4 is LZ4 block compression: fast, modest ratio.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd is zstd at the default level. Better ratio for
	// text, html, json, and notebooks.
	CompressionZstd CompressionTag = 2

	// CompressionBG4LZ4 groups bytes by position within 4-byte words
	// before LZ4. Effective on float32 array payloads.
	CompressionBG4LZ4 CompressionTag = 3
)

func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	case CompressionBG4LZ4:
		return "bg4_lz4"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// ParseCompressionTag parses a configured compression name. The empty
// string means none.
func ParseCompressionTag(name string) (CompressionTag, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	case "bg4_lz4":
		return CompressionBG4LZ4, nil
	default:
		return 0, fmt.Errorf("storage: unknown compression %q", name)
	}
}

// frameMagic prefixes every compressed payload:
//
//	magic(4) | tag(1) | uvarint(uncompressed size) | body
//
// Payloads without the prefix are returned unchanged on read, so a
// store can switch compression without rewriting existing items.
var frameMagic = []byte{0x00, 'R', 'Q', 'Z'}

var errIncompressible = errors.New("data is incompressible")

// encodePayload compresses data with tag and frames the result. Data
// that does not shrink is framed with CompressionNone so that payloads
// which happen to begin with the magic bytes still decode correctly.
func encodePayload(data []byte, tag CompressionTag) ([]byte, error) {
	if tag == CompressionNone && !bytes.HasPrefix(data, frameMagic) {
		return data, nil
	}

	body, err := compressBody(data, tag)
	if errors.Is(err, errIncompressible) {
		tag, body, err = CompressionNone, data, nil
	}
	if err != nil {
		return nil, err
	}

	header := make([]byte, 0, len(frameMagic)+1+binary.MaxVarintLen64)
	header = append(header, frameMagic...)
	header = append(header, byte(tag))
	header = binary.AppendUvarint(header, uint64(len(data)))
	return append(header, body...), nil
}

// decodePayload reverses encodePayload.
func decodePayload(stored []byte) ([]byte, error) {
	if !bytes.HasPrefix(stored, frameMagic) {
		return stored, nil
	}
	rest := stored[len(frameMagic):]
	if len(rest) < 1 {
		return nil, fmt.Errorf("storage: truncated payload frame")
	}
	tag := CompressionTag(rest[0])
	size, n := binary.Uvarint(rest[1:])
	if n <= 0 {
		return nil, fmt.Errorf("storage: corrupt payload frame size")
	}
	body := rest[1+n:]

	switch tag {
	case CompressionNone:
		if uint64(len(body)) != size {
			return nil, fmt.Errorf("storage: payload size %d does not match frame size %d", len(body), size)
		}
		return body, nil
	case CompressionLZ4:
		return decompressLZ4(body, int(size))
	case CompressionZstd:
		return decompressZstd(body, int(size))
	case CompressionBG4LZ4:
		transposed, err := decompressLZ4(body, int(size))
		if err != nil {
			return nil, err
		}
		return bg4Untranspose(transposed), nil
	default:
		return nil, fmt.Errorf("storage: unsupported compression tag %d", tag)
	}
}

func compressBody(data []byte, tag CompressionTag) ([]byte, error) {
	if len(data) == 0 {
		return nil, errIncompressible
	}
	switch tag {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		return compressLZ4(data)
	case CompressionZstd:
		return compressZstd(data)
	case CompressionBG4LZ4:
		return compressLZ4(bg4Transpose(data))
	default:
		return nil, fmt.Errorf("storage: unsupported compression tag %d", tag)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for incompressible input.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, size int) ([]byte, error) {
	destination := make([]byte, size)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("storage: lz4 decompress: %w", err)
	}
	if read != size {
		return nil, fmt.Errorf("storage: lz4 decompress: got %d bytes, expected %d", read, size)
	}
	return destination, nil
}

// zstd.Encoder and zstd.Decoder are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("storage: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("storage: zstd decoder initialization failed: " + err.Error())
	}
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, size int) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("storage: zstd decompress: %w", err)
	}
	if len(result) != size {
		return nil, fmt.Errorf("storage: zstd decompress: got %d bytes, expected %d", len(result), size)
	}
	return result, nil
}

// bg4Transpose moves byte 0 of every 4-byte group first, then every
// byte 1, and so on. Trailing bytes past the last full group are
// copied unchanged.
func bg4Transpose(data []byte) []byte {
	groups := len(data) / 4
	output := make([]byte, len(data))
	for i := range groups {
		output[i] = data[i*4]
		output[groups+i] = data[i*4+1]
		output[groups*2+i] = data[i*4+2]
		output[groups*3+i] = data[i*4+3]
	}
	copy(output[groups*4:], data[groups*4:])
	return output
}

func bg4Untranspose(data []byte) []byte {
	groups := len(data) / 4
	output := make([]byte, len(data))
	for i := range groups {
		output[i*4] = data[i]
		output[i*4+1] = data[groups+i]
		output[i*4+2] = data[groups*2+i]
		output[i*4+3] = data[groups*3+i]
	}
	copy(output[groups*4:], data[groups*4:])
	return output
}
