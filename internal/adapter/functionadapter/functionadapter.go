// Package functionadapter is the built-in DataAdapter (C6) for the
// "function" URL scheme. It does not read from storage: it queries the
// process-wide function registry (C11) by name and streams whatever that
// function's paginated implementation produces, one page per batch.
package functionadapter

import (
	"context"
	"io"
	"strings"

	"bundlebase.dev/bundlebase/internal/adapter"
	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/function"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/types"
)

// Adapter exposes one registered function as a DataAdapter block source.
type Adapter struct {
	registry *function.Registry
	name     string
}

// New returns an Adapter over the function named name, served by registry.
func New(registry *function.Registry, name string) *Adapter {
	return &Adapter{registry: registry, name: name}
}

// NewFactory builds an adapter.Factory bound to registry, suitable for
// adapter.Registry.RegisterScheme("function", ...). sourceURL is expected
// in the form "function://<name>".
func NewFactory(registry *function.Registry) adapter.Factory {
	return func(_ context.Context, sourceURL, _ string) (adapter.DataAdapter, error) {
		name, err := parseName(sourceURL)
		if err != nil {
			return nil, err
		}
		return New(registry, name), nil
	}
}

func parseName(sourceURL string) (string, error) {
	const scheme = "function://"
	if !strings.HasPrefix(sourceURL, scheme) {
		return "", bberr.Newf("functionadapter.parseName", bberr.Validation, "not a function:// URL: %q", sourceURL)
	}
	name := strings.TrimPrefix(sourceURL, scheme)
	if name == "" {
		return "", bberr.Newf("functionadapter.parseName", bberr.Validation, "empty function name in %q", sourceURL)
	}
	return name, nil
}

func (a *Adapter) Schema(_ context.Context) (types.Schema, error) {
	schema, ok := a.registry.Schema(a.name)
	if !ok {
		return types.Schema{}, bberr.Newf("functionadapter.Schema", bberr.ConfigMissing, "function %q is not declared", a.name)
	}
	return schema, nil
}

// ApproxRowCount drains the function's full page stream to count rows.
// Functions attached as blocks are expected to be finite; an unbounded
// generator should not be used through this path.
func (a *Adapter) ApproxRowCount(ctx context.Context) (uint64, error) {
	var total uint64
	var page uint64
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		batch, more, err := a.registry.Next(a.name, page)
		if err != nil {
			return 0, err
		}
		if !more {
			break
		}
		total += uint64(batch.Rows)
		page++
	}
	return total, nil
}

// ByteSize is unknown for a synthetic function source; it reports zero
// rather than draining the stream twice.
func (a *Adapter) ByteSize(_ context.Context) (uint64, error) {
	return 0, nil
}

func (a *Adapter) Scan(ctx context.Context, _ []types.IndexPredicate, _ []string) (planexec.TableSource, error) {
	schema, err := a.Schema(ctx)
	if err != nil {
		return nil, err
	}
	return &tableSource{registry: a.registry, name: a.name, schema: schema}, nil
}

type tableSource struct {
	registry *function.Registry
	name     string
	schema   types.Schema
}

func (t *tableSource) Schema() types.Schema { return t.schema }

func (t *tableSource) Scan(_ context.Context, _ planexec.ScanSpec) (planexec.BatchStream, error) {
	return &batchStream{registry: t.registry, name: t.name}, nil
}

// batchStream turns successive function.Registry.Next pages into a
// planexec.BatchStream, one page per batch, in registration order.
type batchStream struct {
	registry *function.Registry
	name     string
	page     uint64
}

func (s *batchStream) Next(ctx context.Context) (planexec.Batch, error) {
	if err := ctx.Err(); err != nil {
		return planexec.Batch{}, err
	}
	batch, more, err := s.registry.Next(s.name, s.page)
	if err != nil {
		return planexec.Batch{}, err
	}
	if !more {
		return planexec.Batch{}, io.EOF
	}
	s.page++
	return batch, nil
}

func (s *batchStream) Close() error { return nil }

var _ adapter.DataAdapter = (*Adapter)(nil)
var _ planexec.TableSource = (*tableSource)(nil)
var _ planexec.BatchStream = (*batchStream)(nil)
