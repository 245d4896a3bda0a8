package bberr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	cause := errors.New("column not found")
	err := New("filter.check", Validation, cause)

	assert.Equal(t, Validation, err.Kind)
	assert.Equal(t, "filter.check", err.Op)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "filter.check")
	assert.Contains(t, err.Error(), "column not found")
}

func TestNewf(t *testing.T) {
	err := Newf("index.load", IO, "reading %s: unexpected EOF", "idx_1.idx")
	assert.Equal(t, IO, err.Kind)
	assert.Contains(t, err.Error(), "idx_1.idx")
}

func TestWithContext(t *testing.T) {
	base := New("select.check", Validation, errors.New("bad column"))
	withCtx := base.WithContext("column", "amount")

	assert.Empty(t, base.Context, "WithContext must not mutate the receiver")
	assert.Equal(t, "amount", withCtx.Context["column"])
}

func TestKindOf(t *testing.T) {
	wrapped := New("adapter.scan", DataSource, errors.New("not found"))

	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, DataSource, kind)

	_, ok = KindOf(errors.New("plain error"))
	assert.False(t, ok)
}

func TestIs(t *testing.T) {
	err := New("manifest.load", Cycle, errors.New("from chain loops"))
	assert.True(t, Is(err, Cycle))
	assert.False(t, Is(err, Validation))
	assert.False(t, Is(errors.New("plain"), Cycle))
}

func TestUnwrapChaining(t *testing.T) {
	root := errors.New("root cause")
	err := New("op", Execution, root)

	assert.True(t, errors.Is(err, root))
}
