// Package snapshot reads and writes list snapshots: ordered item lists stored
// as YAML or JSON documents, optionally wrapped in an LZ4 frame.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// File extensions.
const (
	jsonExtension = ".json"
	yamlExtension = ".yaml"
	ymlExtension  = ".yml"
	lz4Extension  = ".lz4"
)

// Default indentation for written documents.
const defaultIndent = "  "

// ErrUnknownFormat is returned for file names without a known extension.
var ErrUnknownFormat = errors.New("unknown snapshot format")

// Codec serializes snapshot documents.
type Codec interface {
	// Encode writes doc to w.
	Encode(w io.Writer, doc any) error
	// Decode reads r into doc.
	Decode(r io.Reader, doc any) error
	// Name returns the format name ("json", "yaml").
	Name() string
}

// JSONCodec reads and writes indented JSON.
type JSONCodec struct{}

// Encode implements Codec.
func (JSONCodec) Encode(w io.Writer, doc any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", defaultIndent)

	err := encoder.Encode(doc)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.
func (JSONCodec) Decode(r io.Reader, doc any) error {
	err := json.NewDecoder(r).Decode(doc)
	if err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// Name implements Codec.
func (JSONCodec) Name() string { return "json" }

// YAMLCodec reads and writes YAML.
type YAMLCodec struct{}

// Encode implements Codec.
func (YAMLCodec) Encode(w io.Writer, doc any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(len(defaultIndent))

	err := encoder.Encode(doc)
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	return nil
}

// Decode implements Codec.
func (YAMLCodec) Decode(r io.Reader, doc any) error {
	err := yaml.NewDecoder(r).Decode(doc)
	if err != nil {
		return fmt.Errorf("yaml decode: %w", err)
	}

	return nil
}

// Name implements Codec.
func (YAMLCodec) Name() string { return "yaml" }

// CodecFor picks the codec for path by extension and reports whether the
// document is LZ4 framed ("items.json.lz4").
func CodecFor(path string) (codec Codec, compressed bool, err error) {
	name := strings.ToLower(filepath.Base(path))

	if strings.HasSuffix(name, lz4Extension) {
		compressed = true
		name = strings.TrimSuffix(name, lz4Extension)
	}

	switch filepath.Ext(name) {
	case jsonExtension:
		return JSONCodec{}, compressed, nil
	case yamlExtension, ymlExtension:
		return YAMLCodec{}, compressed, nil
	default:
		return nil, false, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
}
