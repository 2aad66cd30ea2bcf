package output

import (
	"fmt"
	"io"
)

type level int

const (
	levelInfo level = iota
	levelWarn
	levelSuccess
)

var prefixes = map[level]string{ //nolint:gochecknoglobals // read-only lookup
	levelInfo:    "ℹ️  ",
	levelWarn:    "⚠️  ",
	levelSuccess: "✅ ",
}

func writeMessage(w io.Writer, lvl level, plain bool, msg string) {
	if !plain {
		msg = prefixes[lvl] + msg
	}
	_, _ = fmt.Fprintln(w, msg)
}
