package uwapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatTextRendersErrorObject(t *testing.T) {
	resp := ErrorResponse("something broke")
	text := FormatText(resp)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(text), &decoded))
	require.Equal(t, "something broke", decoded["error"])
}

func TestFormatTextPrettyPrintsData(t *testing.T) {
	resp := DataResponse([]byte(`{"ticker":"AAPL","volume":123}`))
	text := FormatText(resp)

	require.JSONEq(t, `{"ticker":"AAPL","volume":123}`, text)
	require.Contains(t, text, "\n")
}

func TestFormatTextEmptyEnvelope(t *testing.T) {
	require.Equal(t, "{}", FormatText(Response{}))
}

func TestFormatErrorBuildsJSONObject(t *testing.T) {
	text := FormatError(`quote "broken"`)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(text), &decoded))
	require.Equal(t, `quote "broken"`, decoded["error"])
}

func TestFormatStructuredKeepsRawData(t *testing.T) {
	raw := json.RawMessage(`{"a":1}`)
	rendered := FormatStructured(DataResponse(raw))

	require.Equal(t, raw, rendered.Data)
	require.JSONEq(t, `{"a":1}`, rendered.Text)
}

func TestResponseIsError(t *testing.T) {
	require.True(t, ErrorResponse("nope").IsError())
	require.False(t, DataResponse([]byte(`{}`)).IsError())
	require.False(t, Response{}.IsError())
}
