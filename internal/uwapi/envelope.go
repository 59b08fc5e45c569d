package uwapi

import (
	"encoding/json"
	"fmt"
)

// Response is the uniform envelope returned by every call into the outbound
// client. Exactly one of Data or Error is populated; both absent means an
// empty success payload.
type Response struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// DataResponse wraps an opaque JSON payload in a success envelope.
func DataResponse(data json.RawMessage) Response {
	return Response{Data: data}
}

// ErrorResponse builds an error envelope from a format string.
func ErrorResponse(format string, args ...any) Response {
	return Response{Error: fmt.Sprintf(format, args...)}
}

// IsError reports whether the envelope carries a failure.
func (r Response) IsError() bool {
	return r.Error != ""
}

// Rendered pairs the string rendering of an envelope with its raw payload so
// callers can get typed access without re-parsing.
type Rendered struct {
	Text string          `json:"text"`
	Data json.RawMessage `json:"data,omitempty"`
}

// FormatText renders an envelope as pretty-printed JSON: an error object when
// Error is set, the raw payload otherwise. An empty envelope renders as "{}".
func FormatText(resp Response) string {
	if resp.Error != "" {
		return FormatError(resp.Error)
	}
	if len(resp.Data) == 0 {
		return "{}"
	}

	var payload any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		// Payload is opaque; pass it through untouched rather than lose it.
		return string(resp.Data)
	}
	buf, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return string(resp.Data)
	}
	return string(buf)
}

// FormatError renders a bare error string as a pretty-printed JSON error
// object.
func FormatError(message string) string {
	buf, err := json.MarshalIndent(map[string]string{"error": message}, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\n  \"error\": %q\n}", message)
	}
	return string(buf)
}

// FormatStructured renders an envelope while retaining the raw payload for
// callers that want both.
func FormatStructured(resp Response) Rendered {
	return Rendered{
		Text: FormatText(resp),
		Data: resp.Data,
	}
}
