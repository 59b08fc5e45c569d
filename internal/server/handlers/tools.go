package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/erikmaday/unusual-whales-mcp-sub001/internal/errors"
	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/metrics"
	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/tools"
	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/uwapi"
)

// ToolInvoker executes a named tool and returns the uniform response
// envelope. Satisfied by tools.Dispatcher.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) uwapi.Response
}

var toolInvoker ToolInvoker

// SetToolInvoker injects the dispatcher used by the tool endpoints.
func SetToolInvoker(invoker ToolInvoker) {
	toolInvoker = invoker
}

// ToolCatalogResponse lists the available tools.
type ToolCatalogResponse struct {
	Tools []tools.Action `json:"tools"`
}

// ToolCatalogHandler handles GET /tools.
func ToolCatalogHandler(w http.ResponseWriter, r *http.Request) {
	response := ToolCatalogResponse{Tools: tools.Catalog()}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// ToolCallHandler handles POST /tools/{name}. The request body is a JSON
// object of tool arguments; an empty body means no arguments.
//
// Upstream failures are not HTTP errors here: the envelope carries them in
// its error field and the response stays 200, so callers distinguish
// transport problems from market-data problems by envelope inspection.
func ToolCallHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := tools.Lookup(name); !ok {
		respondWithError(w, r, apperrors.NewNotFoundError("unknown tool: "+name))
		return
	}

	args, err := decodeToolArgs(r.Body)
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "request body must be a JSON object"))
		return
	}

	if toolInvoker == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("tool dispatcher not initialized"))
		return
	}

	start := time.Now()
	envelope := toolInvoker.Invoke(r.Context(), name, args)
	metrics.RecordToolInvocation(name, !envelope.IsError(), time.Since(start))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(envelope)
}

func decodeToolArgs(body io.Reader) (map[string]any, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	args := map[string]any{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, errors.New("invalid JSON object")
	}
	return args, nil
}
