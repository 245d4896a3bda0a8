package index

import (
	"encoding/binary"

	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/types"
)

// coveredBlock is one (block_id, version) this index build covers. The
// block-id table sits between the header and the directory; decode uses
// it both for version binding (§4.6 "a lookup must validate that every
// block it plans to read matches the index's recorded version") and to
// resolve each row-id's interned block-id hash back to its ObjectId,
// since the blocks region's row-ids carry only a fixed-width u64 hash.
type coveredBlock struct {
	id      types.ObjectId
	version string
}

func blockHash(id types.ObjectId) uint64 {
	var h uint64 = 1469598103934665603 // FNV-1a 64-bit offset basis
	for i := 0; i < len(id); i++ {
		h ^= uint64(id[i])
		h *= 1099511628211
	}
	return h
}

func encodeString(buf []byte, s string) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, s...)
}

func decodeString(buf []byte, offset int) (string, int, error) {
	if offset+4 > len(buf) {
		return "", 0, bberr.Newf("index.decodeString", bberr.DataSource, "truncated string length")
	}
	n := int(binary.LittleEndian.Uint32(buf[offset : offset+4]))
	offset += 4
	if offset+n > len(buf) {
		return "", 0, bberr.Newf("index.decodeString", bberr.DataSource, "truncated string body")
	}
	return string(buf[offset : offset+n]), offset + n, nil
}

// encodeFile serializes entries (already sorted by value) into the §4.7
// on-disk layout: header, block-id table, directory, then the blocks
// region.
func encodeFile(dtype types.DataType, totalRows uint64, covered []coveredBlock, entries []entryRecord) ([]byte, error) {
	tag, ok := dtypeTag(dtype)
	if !ok {
		return nil, bberr.Newf("index.encodeFile", bberr.Schema, "unsupported index dtype %v", dtype)
	}

	type built struct {
		min, max types.IndexedValue
		offset   uint64
		length   uint32
		record   []byte
	}
	records := make([]built, len(entries))
	var blocksLen uint64
	for i, e := range entries {
		rec := encodeIndexedValue(nil, e.value)
		var countBuf [4]byte
		binary.LittleEndian.PutUint32(countBuf[:], uint32(len(e.rowIDs)))
		rec = append(rec, countBuf[:]...)
		for _, rid := range e.rowIDs {
			var idBuf [16]byte
			binary.LittleEndian.PutUint64(idBuf[0:8], blockHash(rid.BlockID))
			binary.LittleEndian.PutUint64(idBuf[8:16], rid.Offset)
			rec = append(rec, idBuf[:]...)
		}
		records[i] = built{min: e.value, max: e.value, offset: blocksLen, length: uint32(len(rec)), record: rec}
		blocksLen += uint64(len(rec))
	}

	h := header{dtype: tag, entryCount: uint32(len(entries)), totalRows: totalRows, blockDirCount: uint32(len(covered))}
	out := h.encode()

	for _, cb := range covered {
		out = encodeString(out, string(cb.id))
		out = encodeString(out, cb.version)
	}

	for _, r := range records {
		out = encodeIndexedValue(out, r.min)
		out = encodeIndexedValue(out, r.max)
		var offLen [12]byte
		binary.LittleEndian.PutUint64(offLen[0:8], r.offset)
		binary.LittleEndian.PutUint32(offLen[8:12], r.length)
		out = append(out, offLen[:]...)
	}

	for _, r := range records {
		out = append(out, r.record...)
	}

	return out, nil
}

// decodeFile parses a full §4.7 file into its header, covered-block
// table, and decoded entries.
func decodeFile(buf []byte) (header, []coveredBlock, []entryRecord, error) {
	h, err := decodeHeader(buf)
	if err != nil {
		return header{}, nil, nil, err
	}

	off := headerSize
	covered := make([]coveredBlock, 0, h.blockDirCount)
	hashToID := make(map[uint64]types.ObjectId, h.blockDirCount)
	for i := uint32(0); i < h.blockDirCount; i++ {
		id, next, err := decodeString(buf, off)
		if err != nil {
			return header{}, nil, nil, err
		}
		off = next
		version, next, err := decodeString(buf, off)
		if err != nil {
			return header{}, nil, nil, err
		}
		off = next
		blockID := types.ObjectId(id)
		covered = append(covered, coveredBlock{id: blockID, version: version})
		hashToID[blockHash(blockID)] = blockID
	}

	type dirSlot struct {
		offset uint64
		length uint32
	}
	slots := make([]dirSlot, 0, h.entryCount)
	for i := uint32(0); i < h.entryCount; i++ {
		_, next, err := decodeIndexedValue(buf, off)
		if err != nil {
			return header{}, nil, nil, err
		}
		off = next
		_, next, err = decodeIndexedValue(buf, off)
		if err != nil {
			return header{}, nil, nil, err
		}
		off = next
		if off+12 > len(buf) {
			return header{}, nil, nil, bberr.Newf("index.decodeFile", bberr.DataSource, "truncated directory entry %d", i)
		}
		offset := binary.LittleEndian.Uint64(buf[off : off+8])
		length := binary.LittleEndian.Uint32(buf[off+8 : off+12])
		off += 12
		slots = append(slots, dirSlot{offset: offset, length: length})
	}

	blocksRegionStart := off
	entries := make([]entryRecord, 0, len(slots))
	for _, slot := range slots {
		start := blocksRegionStart + int(slot.offset)
		end := start + int(slot.length)
		if end > len(buf) || start < 0 {
			return header{}, nil, nil, bberr.Newf("index.decodeFile", bberr.DataSource, "directory entry out of bounds")
		}
		rec := buf[start:end]

		value, next, err := decodeIndexedValue(rec, 0)
		if err != nil {
			return header{}, nil, nil, err
		}
		if next+4 > len(rec) {
			return header{}, nil, nil, bberr.Newf("index.decodeFile", bberr.DataSource, "truncated row-id count")
		}
		count := binary.LittleEndian.Uint32(rec[next : next+4])
		next += 4

		rowIDs := make([]types.RowId, 0, count)
		for i := uint32(0); i < count; i++ {
			if next+16 > len(rec) {
				return header{}, nil, nil, bberr.Newf("index.decodeFile", bberr.DataSource, "truncated row-id")
			}
			blockHashValue := binary.LittleEndian.Uint64(rec[next : next+8])
			rowOffset := binary.LittleEndian.Uint64(rec[next+8 : next+16])
			next += 16
			blockID, ok := hashToID[blockHashValue]
			if !ok {
				return header{}, nil, nil, bberr.Newf("index.decodeFile", bberr.DataSource, "unresolved block-id hash %d", blockHashValue)
			}
			rowIDs = append(rowIDs, types.RowId{BlockID: blockID, Offset: rowOffset})
		}
		entries = append(entries, entryRecord{value: value, rowIDs: rowIDs})
	}

	return h, covered, entries, nil
}
