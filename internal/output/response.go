package output

import (
	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/uwapi"
)

// FormatResponse renders a response envelope in the requested format.
// Table and JSON both emit pretty-printed JSON since market data payloads
// have no fixed tabular shape.
func FormatResponse(format Format, resp uwapi.Response) (string, error) {
	switch format {
	case FormatYAML:
		return marshalYAML(resp)
	default:
		return uwapi.FormatText(resp), nil
	}
}
