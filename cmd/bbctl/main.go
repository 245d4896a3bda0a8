// Command bbctl is bundlebase's command-line client: attach sources,
// record operations, commit versions, build indexes, and inspect a
// bundle's history and query plan from a shell.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
