package snapshot

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pierrec/lz4/v4"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/listkit/pkg/diffutil"
)

//go:embed schema.json
var schemaJSON []byte

// DefaultMaxBytes bounds the decoded size of a snapshot document.
const DefaultMaxBytes = 64 << 20

// Sentinel errors.
var (
	ErrInvalid  = errors.New("snapshot does not match schema")
	ErrTooLarge = errors.New("snapshot exceeds size limit")
)

// Item is one list entry. ID is its identity; Content is what it renders.
type Item struct {
	ID      string `json:"id"                yaml:"id"`
	Content string `json:"content,omitempty" yaml:"content,omitempty"`
}

// Document is the on-disk form of a snapshot.
type Document struct {
	Items []Item `json:"items" yaml:"items"`
}

// Option configures Load and Decode.
type Option func(*options)

type options struct {
	maxBytes int64
}

// WithMaxBytes bounds the decoded document size. Zero or negative keeps the
// default.
func WithMaxBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBytes = n
		}
	}
}

// Load reads the snapshot at path. The format follows the file extension.
func Load(path string, opts ...Option) ([]Item, error) {
	codec, compressed, err := CodecFor(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()

	var r io.Reader = file
	if compressed {
		r = lz4.NewReader(file)
	}

	items, err := Decode(r, codec, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return items, nil
}

// Decode reads one document from r, checks it against the snapshot schema
// and returns its items.
func Decode(r io.Reader, codec Codec, opts ...Option) ([]Item, error) {
	o := options{maxBytes: DefaultMaxBytes}
	for _, opt := range opts {
		opt(&o)
	}

	data, err := io.ReadAll(io.LimitReader(r, o.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	if int64(len(data)) > o.maxBytes {
		return nil, fmt.Errorf("more than %d bytes: %w", o.maxBytes, ErrTooLarge)
	}

	var generic any

	err = codec.Decode(bytes.NewReader(data), &generic)
	if err != nil {
		return nil, err
	}

	err = validate(generic)
	if err != nil {
		return nil, err
	}

	var doc Document

	err = codec.Decode(bytes.NewReader(data), &doc)
	if err != nil {
		return nil, err
	}

	return doc.Items, nil
}

func validate(doc any) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate snapshot: %w", err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

// Save writes items to path in the format its extension names.
func Save(path string, items []Item) (err error) {
	codec, compressed, err := CodecFor(path)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	defer func() {
		closeErr := file.Close()
		if err == nil && closeErr != nil {
			err = fmt.Errorf("close snapshot: %w", closeErr)
		}
	}()

	if items == nil {
		items = []Item{}
	}

	if !compressed {
		return codec.Encode(file, Document{Items: items})
	}

	zw := lz4.NewWriter(file)

	err = codec.Encode(zw, Document{Items: items})
	if err != nil {
		return err
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("close lz4 frame: %w", err)
	}

	return nil
}

// ItemCallback compares Items by ID, then by Content. The change payload is
// the new content.
func ItemCallback() diffutil.ItemCallback[Item] {
	return diffutil.ItemFuncs[Item]{
		Same:     func(a, b Item) bool { return a.ID == b.ID },
		Contents: func(a, b Item) bool { return a.Content == b.Content },
		Payload:  func(_, b Item) any { return b.Content },
	}
}

// IDs returns the IDs of items in order.
func IDs(items []Item) []string {
	ids := make([]string, len(items))
	for idx, item := range items {
		ids[idx] = item.ID
	}

	return ids
}
