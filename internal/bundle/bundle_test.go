package bundle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bundlebase.dev/bundlebase/internal/adapter"
	"bundlebase.dev/bundlebase/internal/adapter/csvadapter"
	"bundlebase.dev/bundlebase/internal/manifest"
	"bundlebase.dev/bundlebase/internal/objstore"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/types"
)

// fakePlan is a minimal planexec.LogicalPlan stub that records which
// composition calls were made, enough to assert assembly order without
// wiring in the real SQL engine.
type fakePlan struct {
	trace *[]string
	label string
}

func (p *fakePlan) Schema() types.Schema { return types.Schema{} }

func (p *fakePlan) Filter(sql string, params []interface{}) (planexec.LogicalPlan, error) {
	*p.trace = append(*p.trace, "filter:"+sql)
	return p, nil
}

func (p *fakePlan) Project(sqlOrColumns string, params []interface{}) (planexec.LogicalPlan, error) {
	*p.trace = append(*p.trace, "project:"+sqlOrColumns)
	return p, nil
}

func (p *fakePlan) RemoveColumns(names []string) (planexec.LogicalPlan, error) {
	*p.trace = append(*p.trace, "removeColumns")
	return p, nil
}

func (p *fakePlan) RenameColumn(from, to string) (planexec.LogicalPlan, error) {
	*p.trace = append(*p.trace, "renameColumn")
	return p, nil
}

func (p *fakePlan) UnionAll(other planexec.LogicalPlan) (planexec.LogicalPlan, error) {
	*p.trace = append(*p.trace, "union")
	return p, nil
}

func (p *fakePlan) Join(other planexec.LogicalPlan, predicate string, how planexec.JoinKind, qualifier string) (planexec.LogicalPlan, error) {
	*p.trace = append(*p.trace, "join")
	return p, nil
}

func (p *fakePlan) Explain() (string, error) { return "fake plan: " + p.label, nil }

func (p *fakePlan) ExecuteStream(ctx context.Context) (planexec.BatchStream, error) {
	return nil, nil
}

type fakeEngine struct {
	trace []string
}

func (e *fakeEngine) NewTableScan(source planexec.TableSource) (planexec.LogicalPlan, error) {
	e.trace = append(e.trace, "scan")
	return &fakePlan{trace: &e.trace, label: "scan"}, nil
}

func setupDeps(t *testing.T, root string) (Dependencies, *fakeEngine) {
	t.Helper()
	registry := adapter.NewRegistry()
	registry.RegisterExtension(".csv", func(_ context.Context, sourceURL, _ string) (adapter.DataAdapter, error) {
		return csvadapter.New(sourceURL), nil
	})
	resolver := func(url string) (objstore.BlobStore, error) {
		return objstore.NewFileStore(url), nil
	}
	engine := &fakeEngine{}
	deps := Dependencies{
		Engine: engine,
		Manifest: manifest.Dependencies{
			Adapters: registry,
			Resolver: resolver,
		},
	}
	return deps, engine
}

func writeCSV(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuilderAttachFilterCommitThenReopen(t *testing.T) {
	root := t.TempDir()
	csvPath := filepath.Join(root, "widgets.csv")
	writeCSV(t, csvPath, "id,price\n1,10\n2,20\n")

	deps, _ := setupDeps(t, root)

	empty, err := Open(context.Background(), root, deps)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Schema().Len())

	builder := empty.Extend(root)
	require.NoError(t, builder.AttachBlock(context.Background(), csvPath, ""))
	require.NoError(t, builder.Filter("price > $1", 5))
	require.NoError(t, builder.SetName("widgets"))

	committed, err := builder.Commit(context.Background(), "tester", "attach widgets")
	require.NoError(t, err)
	assert.Equal(t, "widgets", committed.Name())
	assert.True(t, committed.Schema().Has("id"))
	assert.True(t, committed.Schema().Has("price"))

	reopened, err := Open(context.Background(), root, deps)
	require.NoError(t, err)
	assert.Equal(t, "widgets", reopened.Name())
	assert.Len(t, reopened.state.Blocks(), 1)
}

func TestBuilderCommitWithNoPendingIsNoop(t *testing.T) {
	root := t.TempDir()
	deps, _ := setupDeps(t, root)

	empty, err := Open(context.Background(), root, deps)
	require.NoError(t, err)

	builder := empty.Extend(root)
	committed, err := builder.Commit(context.Background(), "tester", "nothing to see here")
	require.NoError(t, err)
	assert.Same(t, empty, committed)
}

func TestBuildPlanUnionsBlocksInAttachOrder(t *testing.T) {
	root := t.TempDir()
	aPath := filepath.Join(root, "a.csv")
	bPath := filepath.Join(root, "b.csv")
	writeCSV(t, aPath, "id\n1\n")
	writeCSV(t, bPath, "id\n2\n")

	deps, engine := setupDeps(t, root)

	empty, err := Open(context.Background(), root, deps)
	require.NoError(t, err)

	builder := empty.Extend(root)
	require.NoError(t, builder.AttachBlock(context.Background(), aPath, ""))
	require.NoError(t, builder.AttachBlock(context.Background(), bPath, ""))

	committed, err := builder.Commit(context.Background(), "tester", "attach a and b")
	require.NoError(t, err)

	_, err = committed.Explain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"scan", "scan", "union"}, engine.trace)
}

func TestExtendFromADifferentRootSetsFrom(t *testing.T) {
	parentRoot := t.TempDir()
	childRoot := t.TempDir()
	csvPath := filepath.Join(parentRoot, "base.csv")
	writeCSV(t, csvPath, "id\n1\n")

	deps, _ := setupDeps(t, parentRoot)
	deps.Manifest.Resolver = func(url string) (objstore.BlobStore, error) {
		return objstore.NewFileStore(url), nil
	}

	parent, err := Open(context.Background(), parentRoot, deps)
	require.NoError(t, err)

	builder := parent.Extend(childRoot)
	require.NoError(t, builder.AttachBlock(context.Background(), csvPath, ""))

	committed, err := builder.Commit(context.Background(), "tester", "fork into child")
	require.NoError(t, err)
	assert.Equal(t, childRoot, committed.rootURL)

	store := manifest.New(objstore.NewFileStore(childRoot))
	latest, ok, err := store.Latest(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	m, err := store.Read(context.Background(), latest.Path)
	require.NoError(t, err)
	require.NotNil(t, m.From)
	assert.Equal(t, parentRoot, *m.From)
}
