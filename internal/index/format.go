// Package index implements the column index engine (C7): an on-disk
// binary format per build (index_id, block_id, version), its build and
// lookup paths (Exact/In/Range), selectivity estimation and selection
// policy, version binding, and a tiered decode cache. internal/index/provider.go
// (C8) sits on top, wiring this engine into the scan path.
package index

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/types"
)

var magic = [8]byte{'B', 'B', 'I', 'D', 'X', '0', '0', '1'}

const formatVersion = 1

const headerSize = 32

// dtypeTag maps a types.DataType to its on-disk byte tag, per §4.7.
func dtypeTag(k types.DataType) (byte, bool) {
	switch k {
	case types.Int64:
		return 1, true
	case types.Float64:
		return 2, true
	case types.Utf8:
		return 3, true
	case types.Boolean:
		return 4, true
	case types.Timestamp:
		return 5, true
	case types.Null:
		return 6, true
	default:
		return 0, false
	}
}

func tagDtype(tag byte) (types.DataType, bool) {
	switch tag {
	case 1:
		return types.Int64, true
	case 2:
		return types.Float64, true
	case 3:
		return types.Utf8, true
	case 4:
		return types.Boolean, true
	case 5:
		return types.Timestamp, true
	case 6:
		return types.Null, true
	default:
		return 0, false
	}
}

// header is the fixed 32-byte file header described in §4.7.
type header struct {
	dtype          byte
	entryCount     uint32
	totalRows      uint64
	blockDirCount  uint32
}

func (h header) encode() []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:8], magic[:])
	buf[8] = formatVersion
	buf[9] = h.dtype
	binary.LittleEndian.PutUint32(buf[10:14], h.entryCount)
	binary.LittleEndian.PutUint64(buf[14:22], h.totalRows)
	binary.LittleEndian.PutUint32(buf[22:26], h.blockDirCount)
	// buf[26:32] reserved, left zero
	return buf
}

func decodeHeader(buf []byte) (header, error) {
	if len(buf) < headerSize {
		return header{}, bberr.Newf("index.decodeHeader", bberr.DataSource, "truncated header: %d bytes", len(buf))
	}
	if string(buf[0:8]) != string(magic[:]) {
		return header{}, bberr.Newf("index.decodeHeader", bberr.DataSource, "bad magic %q", buf[0:8])
	}
	if buf[8] != formatVersion {
		return header{}, bberr.Newf("index.decodeHeader", bberr.DataSource, "unknown format version %d", buf[8])
	}
	return header{
		dtype:         buf[9],
		entryCount:    binary.LittleEndian.Uint32(buf[10:14]),
		totalRows:     binary.LittleEndian.Uint64(buf[14:22]),
		blockDirCount: binary.LittleEndian.Uint32(buf[22:26]),
	}, nil
}

// directoryEntry is one row of the §4.7 directory region: the
// min/max indexed value covered by one distinct-value block, and where
// that block's record lives in the blocks region.
type directoryEntry struct {
	min, max types.IndexedValue
	offset   uint64
	length   uint32
}

// entryRecord is one decoded distinct-value block from the blocks region:
// the value itself and the row-ids that carry it.
type entryRecord struct {
	value  types.IndexedValue
	rowIDs []types.RowId
}

// encodeIndexedValue appends v's tagged encoding to buf.
func encodeIndexedValue(buf []byte, v types.IndexedValue) []byte {
	tag, _ := dtypeTag(v.Kind)
	buf = append(buf, tag)
	switch v.Kind {
	case types.Int64, types.Timestamp:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], uint64(v.Int))
		buf = append(buf, tmp[:]...)
	case types.Float64:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v.Float))
		buf = append(buf, tmp[:]...)
	case types.Utf8:
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(v.Str)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, v.Str...)
	case types.Boolean:
		if v.Boolean {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case types.Null:
		// zero-length payload
	}
	return buf
}

// decodeIndexedValue reads one tagged value from buf starting at offset,
// returning the value and the offset immediately past it.
func decodeIndexedValue(buf []byte, offset int) (types.IndexedValue, int, error) {
	if offset >= len(buf) {
		return types.IndexedValue{}, 0, io.ErrUnexpectedEOF
	}
	tag := buf[offset]
	offset++
	kind, ok := tagDtype(tag)
	if !ok {
		return types.IndexedValue{}, 0, bberr.Newf("index.decodeIndexedValue", bberr.DataSource, "unknown value tag %d", tag)
	}
	switch kind {
	case types.Int64, types.Timestamp:
		if offset+8 > len(buf) {
			return types.IndexedValue{}, 0, io.ErrUnexpectedEOF
		}
		v := int64(binary.LittleEndian.Uint64(buf[offset : offset+8]))
		return types.IndexedValue{Kind: kind, Int: v}, offset + 8, nil
	case types.Float64:
		if offset+8 > len(buf) {
			return types.IndexedValue{}, 0, io.ErrUnexpectedEOF
		}
		v := math.Float64frombits(binary.LittleEndian.Uint64(buf[offset : offset+8]))
		return types.IndexedValue{Kind: kind, Float: v}, offset + 8, nil
	case types.Utf8:
		if offset+4 > len(buf) {
			return types.IndexedValue{}, 0, io.ErrUnexpectedEOF
		}
		n := int(binary.LittleEndian.Uint32(buf[offset : offset+4]))
		offset += 4
		if offset+n > len(buf) {
			return types.IndexedValue{}, 0, io.ErrUnexpectedEOF
		}
		return types.IndexedValue{Kind: kind, Str: string(buf[offset : offset+n])}, offset + n, nil
	case types.Boolean:
		if offset+1 > len(buf) {
			return types.IndexedValue{}, 0, io.ErrUnexpectedEOF
		}
		return types.IndexedValue{Kind: kind, Boolean: buf[offset] != 0}, offset + 1, nil
	case types.Null:
		return types.IndexedValue{Kind: kind}, offset, nil
	default:
		return types.IndexedValue{}, 0, fmt.Errorf("index: unreachable kind %v", kind)
	}
}
