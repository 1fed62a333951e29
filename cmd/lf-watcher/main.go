// Package main provides the lf-watcher CLI application.
//
// lf-watcher keeps the file manager's bookmarks, yank history and workspace
// shortcuts pointing at the right places while the files behind them are
// renamed, moved or deleted.
package main

import (
	"fmt"
	"os"
)

// version is set during build time.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
