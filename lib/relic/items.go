// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package relic

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/The-Dev-Effect/reliquery/lib/digest"
	"github.com/The-Dev-Effect/reliquery/lib/schema"
)

// AddText stores text uncompressed. The recorded shape is its length
// in characters.
func (r *Relic) AddText(ctx context.Context, name, text string) error {
	if err := validID(name); err != nil {
		return err
	}
	if err := r.storage.PutText(ctx, r.itemPath(schema.DataKindText, name), text); err != nil {
		return fmt.Errorf("relic %s/%s: put text %q: %w", r.relicType, r.name, name, err)
	}
	shape := strconv.Itoa(utf8.RuneCountInString(text))
	return r.writeMetadata(ctx, schema.DataKindText, name, int64(len(text)), &shape, digest.Sum([]byte(text)).String())
}

func (r *Relic) GetText(ctx context.Context, name string) (string, error) {
	if err := validID(name); err != nil {
		return "", err
	}
	text, err := r.storage.GetText(ctx, r.itemPath(schema.DataKindText, name))
	if err != nil {
		return "", fmt.Errorf("relic %s/%s: get text %q: %w", r.relicType, r.name, name, err)
	}
	return text, nil
}

func (r *Relic) ListText(ctx context.Context) ([]string, error) {
	return r.List(ctx, schema.DataKindText)
}

// AddJSON stores value encoded as JSON.
func (r *Relic) AddJSON(ctx context.Context, name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("relic %s/%s: encode json %q: %w", r.relicType, r.name, name, err)
	}
	return r.putBytes(ctx, schema.DataKindJSON, name, data, nil)
}

// GetJSON decodes a stored JSON item into value.
func (r *Relic) GetJSON(ctx context.Context, name string, value any) error {
	data, err := r.getBytes(ctx, schema.DataKindJSON, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, value); err != nil {
		return fmt.Errorf("relic %s/%s: decode json %q: %w", r.relicType, r.name, name, err)
	}
	return nil
}

func (r *Relic) ListJSON(ctx context.Context) ([]string, error) {
	return r.List(ctx, schema.DataKindJSON)
}

// FormatShape renders array dimensions as a tuple: [100, 128] is
// "(100, 128)", [5] is "(5,)", and no dimensions is "()".
func FormatShape(dims []int) string {
	parts := make([]string, len(dims))
	for i, dim := range dims {
		parts[i] = strconv.Itoa(dim)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// AddArray stores an encoded array. dims is recorded as the item's
// shape; the payload itself is not inspected.
func (r *Relic) AddArray(ctx context.Context, name string, data []byte, dims []int) error {
	shape := FormatShape(dims)
	return r.putBytes(ctx, schema.DataKindArrays, name, data, &shape)
}

func (r *Relic) GetArray(ctx context.Context, name string) ([]byte, error) {
	return r.getBytes(ctx, schema.DataKindArrays, name)
}

func (r *Relic) ListArrays(ctx context.Context) ([]string, error) {
	return r.List(ctx, schema.DataKindArrays)
}

// AddHTML copies a local HTML file into the relic.
func (r *Relic) AddHTML(ctx context.Context, name, localPath string) error {
	return r.putFile(ctx, schema.DataKindHTML, name, localPath)
}

func (r *Relic) GetHTML(ctx context.Context, name string) (string, error) {
	data, err := r.getBytes(ctx, schema.DataKindHTML, name)
	return string(data), err
}

func (r *Relic) ListHTML(ctx context.Context) ([]string, error) {
	return r.List(ctx, schema.DataKindHTML)
}

func (r *Relic) AddImage(ctx context.Context, name string, data []byte) error {
	return r.putBytes(ctx, schema.DataKindImages, name, data, nil)
}

func (r *Relic) GetImage(ctx context.Context, name string) ([]byte, error) {
	return r.getBytes(ctx, schema.DataKindImages, name)
}

func (r *Relic) ListImages(ctx context.Context) ([]string, error) {
	return r.List(ctx, schema.DataKindImages)
}

// AddFile copies an arbitrary local file into the relic.
func (r *Relic) AddFile(ctx context.Context, name, localPath string) error {
	return r.putFile(ctx, schema.DataKindFiles, name, localPath)
}

// SaveFile writes a stored file to localPath.
func (r *Relic) SaveFile(ctx context.Context, name, localPath string) error {
	return r.getFile(ctx, schema.DataKindFiles, name, localPath)
}

func (r *Relic) ListFiles(ctx context.Context) ([]string, error) {
	return r.List(ctx, schema.DataKindFiles)
}

// AddNotebook copies a notebook file into the relic. Notebooks are
// stored as-is; rendering is left to the reader.
func (r *Relic) AddNotebook(ctx context.Context, name, localPath string) error {
	return r.putFile(ctx, schema.DataKindNotebooks, name, localPath)
}

func (r *Relic) GetNotebook(ctx context.Context, name string) ([]byte, error) {
	return r.getBytes(ctx, schema.DataKindNotebooks, name)
}

func (r *Relic) ListNotebooks(ctx context.Context) ([]string, error) {
	return r.List(ctx, schema.DataKindNotebooks)
}

func (r *Relic) AddVideo(ctx context.Context, name, localPath string) error {
	return r.putFile(ctx, schema.DataKindVideos, name, localPath)
}

// SaveVideo writes a stored video to localPath.
func (r *Relic) SaveVideo(ctx context.Context, name, localPath string) error {
	return r.getFile(ctx, schema.DataKindVideos, name, localPath)
}

func (r *Relic) ListVideos(ctx context.Context) ([]string, error) {
	return r.List(ctx, schema.DataKindVideos)
}

// AddPandasDF stores a serialized data frame with its (rows, columns)
// shape.
func (r *Relic) AddPandasDF(ctx context.Context, name string, data []byte, rows, columns int) error {
	shape := FormatShape([]int{rows, columns})
	return r.putBytes(ctx, schema.DataKindPandasDF, name, data, &shape)
}

func (r *Relic) GetPandasDF(ctx context.Context, name string) ([]byte, error) {
	return r.getBytes(ctx, schema.DataKindPandasDF, name)
}

func (r *Relic) ListPandasDF(ctx context.Context) ([]string, error) {
	return r.List(ctx, schema.DataKindPandasDF)
}
