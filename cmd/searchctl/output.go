package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	formatAuto = "auto"
	formatText = "text"
	formatJSON = "json"
)

// resolveFormat picks text for terminals and JSON for pipes when format is
// auto.
func resolveFormat(format string, w io.Writer) string {
	if format != formatAuto {
		return format
	}
	if isTerminal(w) {
		return formatText
	}
	return formatJSON
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
