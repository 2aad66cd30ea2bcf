// Package output renders command results and errors as text or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Format represents the output format.
type Format string

// Output format constants.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatAuto Format = "auto"
)

// Formatter writes command results in one format. Plain formatters drop
// the decorative prefixes of status messages.
type Formatter struct {
	format Format
	writer io.Writer
	plain  bool
}

// NewFormatter creates a formatter writing to w.
func NewFormatter(format Format, w io.Writer) *Formatter {
	return &Formatter{format: format, writer: w}
}

// WithColor applies a color mode: "never" is always plain, "always" never
// is, and anything else is plain unless the writer is a terminal.
func (f *Formatter) WithColor(mode string) *Formatter {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "never":
		f.plain = true
	case "always":
		f.plain = false
	default:
		f.plain = !IsTerminal(f.writer)
	}
	return f
}

// Format returns the current output format.
func (f *Formatter) Format() Format {
	return f.format
}

// Writer returns the output writer.
func (f *Formatter) Writer() io.Writer {
	return f.writer
}

// IsJSON returns true if the formatter outputs JSON.
func (f *Formatter) IsJSON() bool {
	return f.format == FormatJSON
}

// Plain reports whether status messages are written without prefixes.
func (f *Formatter) Plain() bool {
	return f.plain
}

// JSON writes v as indented JSON regardless of the format.
func (f *Formatter) JSON(v any) error {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Successf writes a success line to the output writer.
func (f *Formatter) Successf(format string, args ...any) {
	writeMessage(f.writer, levelSuccess, f.plain, fmt.Sprintf(format, args...))
}

// Warnf writes a warning line to w, usually stderr.
func (f *Formatter) Warnf(w io.Writer, format string, args ...any) {
	writeMessage(w, levelWarn, f.plain, fmt.Sprintf(format, args...))
}

// DetectFormat determines the appropriate format based on context.
// Returns JSON for non-TTY output, text for TTY, unless explicitly overridden.
func DetectFormat(w io.Writer, explicit Format) Format {
	if explicit != FormatAuto {
		return explicit
	}
	if IsTerminal(w) {
		return FormatText
	}
	return FormatJSON
}

// ParseFormat parses a format string.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	case "text":
		return FormatText
	default:
		return FormatAuto
	}
}
