// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, smallest integer encoding, no indefinite-length items. The same
// metadata document always produces identical bytes, so re-writing an
// unchanged document does not change its backend object.
var encMode cbor.EncMode

// decMode accepts standard CBOR and ignores unknown fields so older
// readers tolerate documents written by newer ones.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Backend documents only use string keys. any-typed targets
		// (tag maps, shape values) decode into map[string]any instead
		// of the CBOR default map[any]any.
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// ErrEmptyDocument is returned by UnmarshalDocument for zero-length or
// whitespace-only input.
var ErrEmptyDocument = errors.New("codec: empty document")

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Format identifies the encoding of a stored document.
type Format int

const (
	FormatCBOR Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "cbor"
}

// Detect reports the encoding of data. A document whose first
// non-whitespace byte opens a JSON object or array is JSON; everything
// else is CBOR. Top-level CBOR documents written by this package are
// maps (major type 5, 0xa0..0xbf), which never collide with '{' or '['.
func Detect(data []byte) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatCBOR
}

// UnmarshalDocument decodes a backend document in either encoding into
// v. Tag and metadata documents written by older JSON-producing clients
// remain readable alongside CBOR documents written by this module.
func UnmarshalDocument(data []byte, v any) (Format, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return FormatCBOR, ErrEmptyDocument
	}
	format := Detect(data)
	if format == FormatJSON {
		return format, json.Unmarshal(data, v)
	}
	return format, decMode.Unmarshal(data, v)
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for
// data. The CLI uses it to show raw metadata documents.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
