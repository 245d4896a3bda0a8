package index

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"bundlebase.dev/bundlebase/internal/types"
)

// decoded is one fully decoded index file, ready for lookups. It is not
// cached itself: the decode cache (see cache.go) holds each hint's lookup
// result instead (cachedLookup in provider.go).
type decoded struct {
	dtype      types.DataType
	covered    []coveredBlock
	entries    []entryRecord // sorted by value ascending
	totalRows  uint64
}

func newDecoded(h header, covered []coveredBlock, entries []entryRecord) decoded {
	dt, _ := tagDtype(h.dtype)
	return decoded{dtype: dt, covered: covered, entries: entries, totalRows: h.totalRows}
}

// versionsMatch validates every block the caller plans to read against
// this index's covered-block table (§4.6 "version binding"). A mismatch
// or an unrecognized block means the index is stale for this read.
func (d decoded) versionsMatch(want []types.VersionedBlockId) bool {
	byID := make(map[types.ObjectId]string, len(d.covered))
	for _, c := range d.covered {
		byID[c.id] = c.version
	}
	for _, w := range want {
		v, ok := byID[w.BlockID]
		if !ok || v != w.Version {
			return false
		}
	}
	return true
}

func (d decoded) totalEntries() int { return len(d.entries) }

func (d decoded) find(v types.IndexedValue) (entryRecord, bool) {
	i := sort.Search(len(d.entries), func(i int) bool {
		c, ok := d.entries[i].value.Compare(v)
		return !ok || c >= 0
	})
	if i < len(d.entries) {
		if c, ok := d.entries[i].value.Compare(v); ok && c == 0 {
			return d.entries[i], true
		}
	}
	return entryRecord{}, false
}

// Exact returns the row-ids carrying value v, found by binary search.
func (d decoded) Exact(v types.IndexedValue) []types.RowId {
	e, ok := d.find(v)
	if !ok {
		return nil
	}
	return e.rowIDs
}

// In processes values in batches of 1000, unioning each block's matching
// offsets into a roaring bitmap posting list to dedupe matches across
// overlapping values, then finalizes sorted by (block_id, offset).
func (d decoded) In(values []types.IndexedValue) []types.RowId {
	const batchSize = 1000
	postings := map[types.ObjectId]*roaring.Bitmap{}
	postingOrder := []types.ObjectId{}

	for start := 0; start < len(values); start += batchSize {
		end := start + batchSize
		if end > len(values) {
			end = len(values)
		}
		for _, v := range values[start:end] {
			for _, rid := range d.Exact(v) {
				bm, ok := postings[rid.BlockID]
				if !ok {
					bm = roaring.New()
					postings[rid.BlockID] = bm
					postingOrder = append(postingOrder, rid.BlockID)
				}
				bm.Add(uint32(rid.Offset))
			}
		}
	}

	sort.Slice(postingOrder, func(i, j int) bool { return postingOrder[i] < postingOrder[j] })

	var out []types.RowId
	for _, blockID := range postingOrder {
		it := postings[blockID].Iterator()
		for it.HasNext() {
			out = append(out, types.RowId{BlockID: blockID, Offset: uint64(it.Next())})
		}
	}
	return out
}

// Range walks the directory, skipping entries outside [min, max], and
// emits row-ids for every entry whose value lies within bounds.
func (d decoded) Range(min, max *types.IndexedValue, minInclusive, maxInclusive bool) []types.RowId {
	var out []types.RowId
	for _, e := range d.entries {
		if min != nil {
			c, ok := e.value.Compare(*min)
			if !ok {
				continue
			}
			if c < 0 || (c == 0 && !minInclusive) {
				continue
			}
		}
		if max != nil {
			c, ok := e.value.Compare(*max)
			if !ok {
				continue
			}
			if c > 0 || (c == 0 && !maxInclusive) {
				continue
			}
		}
		out = append(out, e.rowIDs...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Lookup dispatches p to Exact/In/Range and returns the matching row-ids.
func (d decoded) Lookup(p types.IndexPredicate) []types.RowId {
	switch p.Kind {
	case types.PredicateExact:
		return d.Exact(p.Exact)
	case types.PredicateIn:
		return d.In(p.In)
	case types.PredicateRange:
		return d.Range(p.Min, p.Max, p.MinInclusive, p.MaxInclusive)
	default:
		return nil
	}
}

// selectivity estimates the fraction of rows p is expected to match. See
// §4.6: Exact = 1/total_entries, In(k) = k/total_entries, Range =
// overlapping_directory_entries/total_directory_entries.
func (d decoded) selectivity(p types.IndexPredicate) float64 {
	total := d.totalEntries()
	if total == 0 {
		return 1
	}
	switch p.Kind {
	case types.PredicateExact:
		return 1 / float64(total)
	case types.PredicateIn:
		return float64(len(p.In)) / float64(total)
	case types.PredicateRange:
		overlap := 0
		for _, e := range d.entries {
			if rangeOverlaps(e, p) {
				overlap++
			}
		}
		return float64(overlap) / float64(total)
	default:
		return 1
	}
}

func rangeOverlaps(e entryRecord, p types.IndexPredicate) bool {
	if p.Min != nil {
		c, ok := e.value.Compare(*p.Min)
		if !ok {
			return false
		}
		if c < 0 || (c == 0 && !p.MinInclusive) {
			return false
		}
	}
	if p.Max != nil {
		c, ok := e.value.Compare(*p.Max)
		if !ok {
			return false
		}
		if c > 0 || (c == 0 && !p.MaxInclusive) {
			return false
		}
	}
	return true
}

// selectivityThreshold is the cutoff above which a candidate index is
// skipped in favor of a full scan (§4.6).
const selectivityThreshold = 0.20

// Candidate is one (column, predicate, index) pairing considered by the
// selection policy, carrying enough metadata to break ties.
type Candidate struct {
	Column      string
	Predicate   types.IndexPredicate
	Selectivity float64
	FileSize    int
	decoded     decoded
}

// SelectBest implements §4.6's selection policy: among candidates whose
// selectivity is <= selectivityThreshold, pick the lowest selectivity,
// breaking ties by smaller index file then stable column-name order.
func SelectBest(candidates []Candidate) (Candidate, bool) {
	var pool []Candidate
	for _, c := range candidates {
		if c.Selectivity <= selectivityThreshold {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		return Candidate{}, false
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Selectivity != pool[j].Selectivity {
			return pool[i].Selectivity < pool[j].Selectivity
		}
		if pool[i].FileSize != pool[j].FileSize {
			return pool[i].FileSize < pool[j].FileSize
		}
		return pool[i].Column < pool[j].Column
	})
	return pool[0], true
}
