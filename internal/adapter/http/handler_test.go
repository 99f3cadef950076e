package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestHealth_UsesResponseEnvelope(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

	before := time.Now().UTC().Add(-time.Second)
	if err := NewHandler().Health(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Message   string `json:"message"`
		Ephemeral bool   `json:"ephemeral"`
		Data      health `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Ephemeral || body.Message == "" || body.Data.Status != "ok" {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Data.Time.Location() != time.UTC || body.Data.Time.Before(before) {
		t.Fatalf("time %v is not a fresh UTC timestamp", body.Data.Time)
	}
}

func TestHelp_ListsCommands(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/help", nil), rec)

	if err := NewHandler().Help(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var body Response
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, want := range []string{"/borrow-requests", "/admin/stats", "10% per hour"} {
		if !strings.Contains(body.Message, want) {
			t.Fatalf("help text missing %q", want)
		}
	}
}
