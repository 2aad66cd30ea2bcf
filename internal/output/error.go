package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

// ErrorOutput represents a structured error for JSON output.
type ErrorOutput struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	ExitCode   int               `json:"exit_code"`
}

// NewErrorDetail flattens err into its JSON shape. Errors that are not
// a SyncError are reported as GENERAL_ERROR.
func NewErrorDetail(err error) ErrorDetail {
	var se *syncerr.SyncError
	if !errors.As(err, &se) {
		return ErrorDetail{
			Code:     syncerr.ErrGeneral.Code,
			Message:  err.Error(),
			ExitCode: syncerr.ExitGeneral,
		}
	}

	d := ErrorDetail{
		Code:       se.Code,
		Message:    se.Message,
		Details:    se.Details,
		Suggestion: se.Suggestion,
		ExitCode:   se.ExitCode,
	}
	if se.Cause != nil {
		d.Cause = se.Cause.Error()
	}
	return d
}

// FormatError formats an error for display.
func FormatError(w io.Writer, err error, format Format) error {
	if err == nil {
		return nil
	}

	if format == FormatJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(ErrorOutput{Error: NewErrorDetail(err)})
	}
	return formatErrorText(w, err)
}

// formatErrorText outputs error in text format.
func formatErrorText(w io.Writer, err error) error {
	var sb strings.Builder

	var se *syncerr.SyncError
	if !errors.As(err, &se) {
		sb.WriteString(fmt.Sprintf("Error: %s\n", err.Error()))
		_, writeErr := io.WriteString(w, sb.String())
		return writeErr
	}

	sb.WriteString(fmt.Sprintf("Error: %s\n", se.Message))
	if len(se.Details) > 0 {
		keys := make([]string, 0, len(se.Details))
		for k := range se.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("\nDetails:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", k, se.Details[k]))
		}
	}
	if se.Cause != nil {
		sb.WriteString(fmt.Sprintf("\nCause: %v\n", se.Cause))
	}
	if se.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\nSuggestion: %s\n", se.Suggestion))
	}

	_, writeErr := io.WriteString(w, sb.String())
	return writeErr
}

// FormatSuccess formats a success message.
func FormatSuccess(w io.Writer, message string, format Format) error {
	if format == FormatJSON {
		output := map[string]string{"status": "success", "message": message}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(output)
	}
	_, err := fmt.Fprintln(w, message)
	return err
}
