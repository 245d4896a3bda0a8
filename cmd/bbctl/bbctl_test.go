package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bundlebase.dev/bundlebase/internal/planexec"
)

// run executes a fresh bbctl command tree with args, capturing combined
// stdout/stderr. Building the tree fresh per call keeps repeatable flags
// like commit's --attach from leaking state across invocations.
func run(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	require.NoError(t, err, buf.String())
	return buf.String()
}

func writeCSV(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCreateAttachFilterHistoryExplain(t *testing.T) {
	root := t.TempDir()
	csvPath := filepath.Join(root, "widgets.csv")
	writeCSV(t, csvPath, "id,price\n1,10\n2,20\n")

	run(t, "create", "--root", root, "--name", "widgets", "--author", "tester")
	run(t, "attach", "--root", root, "--source", csvPath, "--author", "tester", "--message", "attach widgets")
	run(t, "filter", "--root", root, "--expr", "price > $1", "--params", "5", "--author", "tester", "--message", "filter cheap")

	historyOut := run(t, "history", "--root", root)
	assert.Contains(t, historyOut, "tester")
	assert.Contains(t, historyOut, "filter cheap")

	explainOut := run(t, "explain", "--root", root)
	assert.Contains(t, explainOut, "WHERE")
}

func TestCommitComposesMultipleOperations(t *testing.T) {
	root := t.TempDir()
	csvPath := filepath.Join(root, "orders.csv")
	writeCSV(t, csvPath, "id,total\n1,100\n2,5\n")

	out := run(t, "commit", "--root", root,
		"--attach", csvPath,
		"--filter", "total > $1",
		"--filter-params", "10",
		"--set-name", "orders",
		"--author", "tester",
		"--message", "bulk commit",
	)
	assert.Contains(t, out, "committed")
	assert.Contains(t, out, "3 operation(s)")
}

func TestCommitWithNoOperationsIsNoop(t *testing.T) {
	root := t.TempDir()
	out := run(t, "commit", "--root", root, "--author", "tester", "--message", "nothing")
	assert.Contains(t, out, "nothing to commit")
}

func TestIndexCreateAndBuild(t *testing.T) {
	root := t.TempDir()
	csvPath := filepath.Join(root, "widgets.csv")
	writeCSV(t, csvPath, "id,price\n1,10\n2,20\n3,30\n")

	run(t, "attach", "--root", root, "--source", csvPath, "--author", "tester", "--message", "attach")

	createOut := run(t, "index", "create", "--root", root, "--column", "id", "--author", "tester", "--message", "index id")
	idMatch := regexp.MustCompile(`created index (\S+) on column`).FindStringSubmatch(createOut)
	require.Len(t, idMatch, 2)
	indexID := idMatch[1]

	buildOut := run(t, "index", "build", "--root", root, "--index-id", indexID, "--author", "tester", "--message", "build id index")
	assert.Contains(t, buildOut, "built index")
	assert.Contains(t, buildOut, "3 rows")
}

func TestViewAttachRegistersOnParent(t *testing.T) {
	root := t.TempDir()
	baseCSV := filepath.Join(root, "base.csv")
	writeCSV(t, baseCSV, "id,price\n1,10\n2,20\n")
	run(t, "attach", "--root", root, "--source", baseCSV, "--author", "tester", "--message", "attach base")

	viewCSV := filepath.Join(root, "expensive.csv")
	writeCSV(t, viewCSV, "id,price\n2,20\n")

	out := run(t, "view", "attach", "--root", root,
		"--name", "expensive",
		"--source", viewCSV,
		"--author", "tester",
		"--message", "attach view",
	)
	assert.Contains(t, out, `attached view "expensive"`)
}

func TestParseParams(t *testing.T) {
	assert.Nil(t, parseParams(""))
	assert.Equal(t, []interface{}{int64(5), "abc", true}, parseParams("5, abc, true"))
}

func TestParseJoinSpec(t *testing.T) {
	name, url, predicate, how, err := parseJoinSpec("customer:customers.csv:l.customer_id = r.id:left")
	require.NoError(t, err)
	assert.Equal(t, "customer", name)
	assert.Equal(t, "customers.csv", url)
	assert.Equal(t, "l.customer_id = r.id", predicate)
	assert.Equal(t, planexec.JoinLeft, how)
}
