package tile

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/Sumatoshi-tech/listkit/pkg/safeconv"
)

// Encoded tile layout, little endian:
//
//	[0]     format (formatRaw or formatLZ4)
//	[1:5]   start position
//	[5:9]   item count
//	[9:13]  length of the JSON item array
//	[13:]   JSON item array, LZ4 block compressed for formatLZ4
const (
	formatRaw byte = iota
	formatLZ4

	headerSize = 13

	// maxCompressionRatio is the most an LZ4 block can expand on decompression.
	maxCompressionRatio = 255
)

// ErrCorrupt is returned by Decode for data Encode did not produce.
var ErrCorrupt = errors.New("corrupt tile encoding")

// Encode serializes the loaded items of t. Items are stored as JSON and LZ4
// compressed unless compression would not shrink them.
func Encode[T any](t *Tile[T]) ([]byte, error) {
	raw, err := json.Marshal(t.Loaded())
	if err != nil {
		return nil, fmt.Errorf("encode tile %d: %w", t.StartPosition, err)
	}

	out := make([]byte, headerSize+lz4.CompressBlockBound(len(raw)))

	for offset, value := range [3]int{t.StartPosition, t.ItemCount, len(raw)} {
		field, convErr := safeconv.IntToUint32(value)
		if convErr != nil {
			return nil, fmt.Errorf("encode tile %d: %w", t.StartPosition, convErr)
		}

		binary.LittleEndian.PutUint32(out[1+4*offset:], field)
	}

	written, err := lz4.CompressBlock(raw, out[headerSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("compress tile %d: %w", t.StartPosition, err)
	}

	// Incompressible input reports zero bytes written.
	if written == 0 || written >= len(raw) {
		out[0] = formatRaw

		return append(out[:headerSize], raw...), nil
	}

	out[0] = formatLZ4

	return out[:headerSize+written], nil
}

// Decode restores a tile encoded by Encode into a tile of tileSize items.
func Decode[T any](data []byte, tileSize int) (*Tile[T], error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%d byte input: %w", len(data), ErrCorrupt)
	}

	start := int(binary.LittleEndian.Uint32(data[1:5]))
	count := int(binary.LittleEndian.Uint32(data[5:9]))
	rawLen := int(binary.LittleEndian.Uint32(data[9:13]))

	if count > tileSize {
		return nil, fmt.Errorf("%d items exceed tile size %d: %w", count, tileSize, ErrCorrupt)
	}

	var raw []byte

	switch data[0] {
	case formatRaw:
		raw = data[headerSize:]
	case formatLZ4:
		if rawLen > (len(data)-headerSize)*maxCompressionRatio {
			return nil, fmt.Errorf("tile %d claims %d raw bytes from %d: %w", start, rawLen, len(data)-headerSize, ErrCorrupt)
		}

		raw = make([]byte, rawLen)

		n, err := lz4.UncompressBlock(data[headerSize:], raw)
		if err != nil {
			return nil, fmt.Errorf("uncompress tile %d: %w: %w", start, ErrCorrupt, err)
		}

		raw = raw[:n]
	default:
		return nil, fmt.Errorf("format %d: %w", data[0], ErrCorrupt)
	}

	var items []T

	err := json.Unmarshal(raw, &items)
	if err != nil {
		return nil, fmt.Errorf("tile %d items: %w: %w", start, ErrCorrupt, err)
	}

	if len(items) != count {
		return nil, fmt.Errorf("tile %d holds %d items, header says %d: %w", start, len(items), count, ErrCorrupt)
	}

	t := New[T](tileSize)
	t.StartPosition = start
	t.ItemCount = copy(t.Items, items)

	return t, nil
}
