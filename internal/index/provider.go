package index

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"bundlebase.dev/bundlebase/internal/manifest"
	"bundlebase.dev/bundlebase/internal/obs"
	"bundlebase.dev/bundlebase/internal/ops"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/state"
	"bundlebase.dev/bundlebase/internal/types"
)

// Provider is the index-aware table provider (C8): it intercepts a
// block's scan, matches recorded Filter predicates against the bundle's
// index definitions, narrows to row-ids through the best candidate index
// (§4.6's selection policy), or falls back to a full scan. It implements
// internal/bundle's ScanProvider and PredicateExtractor interfaces purely
// structurally — internal/bundle never imports this package.
type Provider struct {
	RootURL  string
	Resolver manifest.RootResolver
	Cache    Cache
	State    *state.BundleState
}

// NewProvider builds a Provider reading index files relative to rootURL
// through resolver, caching decoded lookups in cache, and consulting
// state's index definitions to decide what a block's hints can match.
func NewProvider(rootURL string, resolver manifest.RootResolver, cache Cache, st *state.BundleState) *Provider {
	return &Provider{RootURL: rootURL, Resolver: resolver, Cache: cache, State: st}
}

// Extract pulls every IndexPredicate a Filter operation's SQL expresses
// in a recognizable shape. Unrecognized shapes (joins, computed
// expressions, OR clauses) yield no predicates — the scan simply isn't
// narrowed, it never fails.
func (p *Provider) Extract(op ops.Operation) []types.IndexPredicate {
	filter, ok := op.(*ops.Filter)
	if !ok {
		return nil
	}
	return extractPredicates(filter.SQLExpr, filter.Params)
}

var (
	clauseSplit  = regexp.MustCompile(`(?i)\s+AND\s+`)
	exactClause  = regexp.MustCompile(`(?i)^([A-Za-z_][A-Za-z0-9_]*)\s*=\s*\$([0-9]+)$`)
	inClause     = regexp.MustCompile(`(?i)^([A-Za-z_][A-Za-z0-9_]*)\s+IN\s*\(([^)]*)\)$`)
	rangeGEClause = regexp.MustCompile(`(?i)^([A-Za-z_][A-Za-z0-9_]*)\s*(>=|>)\s*\$([0-9]+)$`)
	rangeLEClause = regexp.MustCompile(`(?i)^([A-Za-z_][A-Za-z0-9_]*)\s*(<=|<)\s*\$([0-9]+)$`)
	paramRef      = regexp.MustCompile(`^\$([0-9]+)$`)
)

// extractPredicates recognizes a conjunction of simple clauses
// ("col = $1 AND col2 IN ($2, $3) AND col3 >= $4"), matching
// internal/ops' own simple-shape-or-give-up approach to residual SQL
// (see parseSimpleColumnList in internal/ops/select.go). A clause this
// can't parse is silently skipped rather than aborting the whole filter.
func extractPredicates(sqlExpr string, params []interface{}) []types.IndexPredicate {
	var preds []types.IndexPredicate
	for _, clause := range clauseSplit.Split(strings.TrimSpace(sqlExpr), -1) {
		clause = strings.TrimSpace(clause)

		if m := exactClause.FindStringSubmatch(clause); m != nil {
			if v, ok := paramValue(params, m[2]); ok {
				preds = append(preds, types.NewExactPredicate(m[1], v))
			}
			continue
		}
		if m := inClause.FindStringSubmatch(clause); m != nil {
			var values []types.IndexedValue
			for _, tok := range strings.Split(m[2], ",") {
				tok = strings.TrimSpace(tok)
				if ref := paramRef.FindStringSubmatch(tok); ref != nil {
					if v, ok := paramValue(params, ref[1]); ok {
						values = append(values, v)
					}
				}
			}
			if len(values) > 0 {
				preds = append(preds, types.NewInPredicate(m[1], values...))
			}
			continue
		}
		if m := rangeGEClause.FindStringSubmatch(clause); m != nil {
			if v, ok := paramValue(params, m[3]); ok {
				inclusive := m[2] == ">="
				preds = append(preds, types.NewRangePredicate(m[1], &v, nil, inclusive, false))
			}
			continue
		}
		if m := rangeLEClause.FindStringSubmatch(clause); m != nil {
			if v, ok := paramValue(params, m[3]); ok {
				inclusive := m[2] == "<="
				preds = append(preds, types.NewRangePredicate(m[1], nil, &v, false, inclusive))
			}
			continue
		}
	}
	return preds
}

func paramValue(params []interface{}, indexToken string) (types.IndexedValue, bool) {
	n, err := strconv.Atoi(indexToken)
	if err != nil || n < 1 || n > len(params) {
		return types.IndexedValue{}, false
	}
	switch v := params[n-1].(type) {
	case int64:
		return types.NewInt64Value(v), true
	case int:
		return types.NewInt64Value(int64(v)), true
	case float64:
		return types.NewFloat64Value(v), true
	case string:
		return types.NewUtf8Value(v), true
	case bool:
		return types.NewBooleanValue(v), true
	default:
		return types.IndexedValue{}, false
	}
}

// Scan implements internal/bundle's ScanProvider. It tries every hint
// matching one of block's index definitions, picks the best candidate by
// §4.6's selection policy, narrows to row-ids on a match, and always
// falls back to a full scan (hint-honoring or not) rather than failing
// the query when an index is stale, corrupt, or simply absent.
func (p *Provider) Scan(ctx context.Context, block state.Block, hints []types.IndexPredicate) (planexec.TableSource, error) {
	inner, err := block.Adapter.Scan(ctx, hints, nil)
	if err != nil {
		return nil, err
	}

	rowIDs, ok := p.narrow(ctx, block, hints)
	if !ok {
		return inner, nil
	}
	return &narrowedSource{inner: inner, rowIDs: rowIDs}, nil
}

// narrow resolves hints against block's index definitions and returns
// the row-ids the best matching index selects, or ok=false when nothing
// qualifies (no index covers the column, the index is stale, or every
// candidate's selectivity exceeds the threshold). Each hint's lookup
// consults the decode cache first (§4.6): a hit supplies the row-ids and
// selectivity without touching the blob store or re-decoding the index
// file; a miss decodes once and installs the result under the same key.
func (p *Provider) narrow(ctx context.Context, block state.Block, hints []types.IndexPredicate) ([]types.RowId, bool) {
	log := obs.Logger.WithFields(logrus.Fields{"component": "index_provider", "block": string(block.ID)})
	if len(hints) == 0 {
		return nil, false
	}

	store, err := p.Resolver(p.RootURL)
	if err != nil {
		log.WithError(err).Debug("index provider: resolver unavailable, falling back")
		return nil, false
	}

	var candidates []Candidate
	rowIDsByColumn := map[string][]types.RowId{}
	pathByColumn := map[string]string{}
	defs := map[types.ObjectId]types.IndexDefinition{}
	if p.State != nil {
		defs = p.State.IndexDefinitions()
	}

	for _, hint := range hints {
		ref, path, ok := findIndexRef(defs, block.ID, hint.Column)
		if !ok {
			continue
		}
		pathByColumn[hint.Column] = path
		key := cacheKey(path, hint.Column, predicateCacheBytes(hint))

		if p.Cache != nil {
			if raw, hit := p.Cache.Get(ctx, key); hit {
				if cached, ok := decodeCachedLookup(raw); ok {
					rowIDsByColumn[hint.Column] = cached.RowIDs
					candidates = append(candidates, Candidate{
						Column:      hint.Column,
						Predicate:   hint,
						Selectivity: cached.Selectivity,
						FileSize:    cached.FileSize,
					})
					continue
				}
				log.WithField("path", path).Warn("index provider: corrupt cache entry, falling through to disk")
			}
		}

		raw, err := store.Get(ctx, path)
		if err != nil {
			log.WithField("path", path).WithError(err).Debug("index provider: read failed, fallback")
			continue
		}
		h, covered, entries, err := decodeFile(raw)
		if err != nil {
			log.WithField("path", path).WithError(err).Warn("index provider: corrupt index, fallback")
			continue
		}
		d := newDecoded(h, covered, entries)
		if !d.versionsMatch([]types.VersionedBlockId{ref}) {
			log.WithField("path", path).Info("index provider: stale index, fallback")
			continue
		}
		sel := d.selectivity(hint)
		rowIDs := d.Lookup(hint)
		rowIDsByColumn[hint.Column] = rowIDs
		candidates = append(candidates, Candidate{
			Column:      hint.Column,
			Predicate:   hint,
			Selectivity: sel,
			FileSize:    len(raw),
		})

		if p.Cache != nil {
			if enc, err := encodeCachedLookup(cachedLookup{Selectivity: sel, FileSize: len(raw), RowIDs: rowIDs}); err == nil {
				p.Cache.Set(ctx, key, enc)
			}
		}
	}

	best, ok := SelectBest(candidates)
	if !ok {
		log.Debug("index provider: no candidate under selectivity threshold, fallback")
		return nil, false
	}

	rowIDs := rowIDsByColumn[best.Column]
	log.WithFields(logrus.Fields{
		"column":      best.Column,
		"selectivity": best.Selectivity,
		"path":        pathByColumn[best.Column],
		"matched":     len(rowIDs),
	}).Info("index provider: hit")
	return rowIDs, true
}

// cachedLookup is the decode cache's value shape: one hint's resolved
// row-ids alongside the selectivity/file-size metadata SelectBest needs,
// so a cache hit never has to touch the index file to rebuild a Candidate.
type cachedLookup struct {
	Selectivity float64
	FileSize    int
	RowIDs      []types.RowId
}

func encodeCachedLookup(c cachedLookup) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeCachedLookup(raw []byte) (cachedLookup, bool) {
	var c cachedLookup
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&c); err != nil {
		return cachedLookup{}, false
	}
	return c, true
}

// predicateCacheBytes serializes p deterministically for cacheKey's
// hash(predicate) component — field order and tagged variant only, never a
// pointer address, so identical predicates always hash identically.
func predicateCacheBytes(p types.IndexPredicate) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d", p.Column, p.Kind)
	switch p.Kind {
	case types.PredicateExact:
		fmt.Fprintf(&b, ":%s", indexedValueCacheToken(p.Exact))
	case types.PredicateIn:
		for _, v := range p.In {
			fmt.Fprintf(&b, ":%s", indexedValueCacheToken(v))
		}
	case types.PredicateRange:
		if p.Min != nil {
			fmt.Fprintf(&b, ":min=%s,%t", indexedValueCacheToken(*p.Min), p.MinInclusive)
		}
		if p.Max != nil {
			fmt.Fprintf(&b, ":max=%s,%t", indexedValueCacheToken(*p.Max), p.MaxInclusive)
		}
	}
	return []byte(b.String())
}

func indexedValueCacheToken(v types.IndexedValue) string {
	switch v.Kind {
	case types.Int64, types.Timestamp:
		return fmt.Sprintf("i%d", v.Int)
	case types.Float64:
		return fmt.Sprintf("f%v", v.Float)
	case types.Utf8:
		return fmt.Sprintf("s%s", v.Str)
	case types.Boolean:
		return fmt.Sprintf("b%t", v.Boolean)
	default:
		return "n"
	}
}

// findIndexRef looks up the index definition among defs covering column,
// returning the IndexedBlockRef for blockID if that index covers it.
// state.Block carries no direct index-definition handle — index
// definitions live on BundleState, keyed by index id, not by block — so
// this searches the full set the Provider was constructed with.
func findIndexRef(defs map[types.ObjectId]types.IndexDefinition, blockID types.ObjectId, column string) (types.VersionedBlockId, string, bool) {
	for _, def := range defs {
		if def.Column != column {
			continue
		}
		for _, ref := range def.IndexedBlocks {
			if ref.Block.BlockID == blockID {
				return ref.Block, ref.Path, true
			}
		}
	}
	return types.VersionedBlockId{}, "", false
}

// narrowedSource wraps a TableSource, intersecting any caller-supplied
// ScanSpec.RowIDs with the index-narrowed set rather than overriding it.
type narrowedSource struct {
	inner  planexec.TableSource
	rowIDs []types.RowId
}

func (n *narrowedSource) Schema() types.Schema { return n.inner.Schema() }

func (n *narrowedSource) Scan(ctx context.Context, spec planexec.ScanSpec) (planexec.BatchStream, error) {
	if spec.RowIDs == nil {
		spec.RowIDs = n.rowIDs
	} else {
		spec.RowIDs = intersectRowIDs(spec.RowIDs, n.rowIDs)
	}
	return n.inner.Scan(ctx, spec)
}

func intersectRowIDs(a, b []types.RowId) []types.RowId {
	set := make(map[types.RowId]bool, len(b))
	for _, id := range b {
		set[id] = true
	}
	var out []types.RowId
	for _, id := range a {
		if set[id] {
			out = append(out, id)
		}
	}
	return out
}
