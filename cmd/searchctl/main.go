// Command searchctl builds, inspects and queries search index artifacts
// from the command line.
//
// Usage:
//
//	searchctl build --book ./src --out ./book/searcher
//	searchctl search --index ./book/searcher/searchindex.bin "rust install"
//	searchctl inspect --index ./book/searcher/searchindex.bin
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
