// Package obs provides centralized logging infrastructure for bundlebase.
// It implements output routing that directs error-level records to stderr
// while everything else goes to stdout, the standard split expected by
// container log collectors and shell pipelines alike.
package obs

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
)

// OutputSplitter routes logrus-formatted records to stdout or stderr based
// on their level, without parsing the record itself.
//
// Routing:
//   - records containing "level=error" or "level=fatal" (text formatter),
//     or "level":"error" or "level":"fatal" (JSON formatter), go to stderr
//   - everything else goes to stdout
//
// This operates on the already-formatted byte stream, so it works the same
// way under the text and JSON formatters.
type OutputSplitter struct{}

// Write implements io.Writer, routing p to stderr or stdout by level.
func (splitter *OutputSplitter) Write(p []byte) (n int, err error) {
	if bytes.Contains(p, []byte("level=error")) || bytes.Contains(p, []byte("level=fatal")) ||
		bytes.Contains(p, []byte(`"level":"error"`)) || bytes.Contains(p, []byte(`"level":"fatal"`)) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Logger is the process-wide logger instance, pre-configured with
// OutputSplitter. Components that need bundle- or operation-scoped fields
// should derive a *ContextLogger from it via NewContextLogger rather than
// mutate it directly.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(&OutputSplitter{})
}
