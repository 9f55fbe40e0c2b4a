package mcp

import (
	"encoding/json"
	"fmt"

	errs "github.com/docdex/docdex/internal/errors"
)

// errorPayload shapes a recoverable error into the structured JSON payload
// the tool returns instead of failing the call.
type errorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// formatError renders an error as a pretty-printed JSON error payload.
func formatError(err error) string {
	payload := errorPayload{Error: err.Error(), Code: errs.GetCode(err)}
	if de, ok := err.(*errs.DocError); ok {
		payload.Error = de.Message
	}
	data, merr := json.MarshalIndent(payload, "", "  ")
	if merr != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}

// invalidParams reports a malformed tool invocation. These fail the call
// rather than returning a payload, so clients see a protocol-level error.
func invalidParams(msg string) error {
	return errs.Newf(errs.ErrCodeInvalidInput, "%s", msg)
}
