package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/uwapi"
)

type stubInvoker struct {
	lastName string
	lastArgs map[string]any
	response uwapi.Response
}

func (s *stubInvoker) Invoke(ctx context.Context, name string, args map[string]any) uwapi.Response {
	s.lastName = name
	s.lastArgs = args
	return s.response
}

func newToolRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Get("/tools", ToolCatalogHandler)
	r.Post("/tools/{name}", ToolCallHandler)
	return r
}

func TestToolCatalogHandlerListsTools(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	rec := httptest.NewRecorder()

	newToolRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body ToolCatalogResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode catalog: %v", err)
	}

	if len(body.Tools) == 0 {
		t.Fatal("expected a non-empty tool catalog")
	}

	found := false
	for _, tool := range body.Tools {
		if string(tool.Name) == "ticker_info" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected catalog to include ticker_info")
	}
}

func TestToolCallHandlerInvokesDispatcher(t *testing.T) {
	stub := &stubInvoker{response: uwapi.DataResponse(json.RawMessage(`{"ticker":"AAPL"}`))}
	SetToolInvoker(stub)
	t.Cleanup(func() { SetToolInvoker(nil) })

	req := httptest.NewRequest(http.MethodPost, "/tools/ticker_info", strings.NewReader(`{"ticker":"AAPL"}`))
	rec := httptest.NewRecorder()

	newToolRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if stub.lastName != "ticker_info" {
		t.Fatalf("expected dispatcher to receive ticker_info, got %q", stub.lastName)
	}
	if stub.lastArgs["ticker"] != "AAPL" {
		t.Fatalf("expected ticker argument to pass through, got %v", stub.lastArgs)
	}

	var envelope uwapi.Response
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if envelope.IsError() {
		t.Fatalf("expected data envelope, got error %q", envelope.Error)
	}
}

func TestToolCallHandlerEmptyBodyMeansNoArguments(t *testing.T) {
	stub := &stubInvoker{response: uwapi.DataResponse(json.RawMessage(`{}`))}
	SetToolInvoker(stub)
	t.Cleanup(func() { SetToolInvoker(nil) })

	req := httptest.NewRequest(http.MethodPost, "/tools/market_tide", nil)
	rec := httptest.NewRecorder()

	newToolRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if stub.lastArgs == nil || len(stub.lastArgs) != 0 {
		t.Fatalf("expected empty args map, got %v", stub.lastArgs)
	}
}

func TestToolCallHandlerUpstreamErrorStaysHTTP200(t *testing.T) {
	stub := &stubInvoker{response: uwapi.ErrorResponse("API error (status 500): boom")}
	SetToolInvoker(stub)
	t.Cleanup(func() { SetToolInvoker(nil) })

	req := httptest.NewRequest(http.MethodPost, "/tools/ticker_info", strings.NewReader(`{"ticker":"AAPL"}`))
	rec := httptest.NewRecorder()

	newToolRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("upstream failures belong in the envelope, got HTTP %d", rec.Code)
	}

	var envelope uwapi.Response
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if !envelope.IsError() {
		t.Fatal("expected error envelope")
	}
}

func TestToolCallHandlerUnknownToolReturns404(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/tools/nope", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	newToolRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestToolCallHandlerRejectsInvalidJSONBody(t *testing.T) {
	stub := &stubInvoker{response: uwapi.DataResponse(json.RawMessage(`{}`))}
	SetToolInvoker(stub)
	t.Cleanup(func() { SetToolInvoker(nil) })

	req := httptest.NewRequest(http.MethodPost, "/tools/ticker_info", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()

	newToolRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if stub.lastName != "" {
		t.Fatal("dispatcher should not run for a malformed body")
	}
}

func TestToolCallHandlerWithoutInvokerReturns503(t *testing.T) {
	SetToolInvoker(nil)

	req := httptest.NewRequest(http.MethodPost, "/tools/ticker_info", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	newToolRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}
