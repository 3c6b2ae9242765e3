// Command ctx is the Context Harness CLI: ingestion, search, and the
// tool-call server all live under one binary.
package main

import "github.com/contextharness/ctx/internal/cli"

func main() {
	cli.Execute()
}
