package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runReadiness(t *testing.T, deps map[string]PingFunc) (int, readinessResponse) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := NewHealthHandler(deps).Readiness(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body readinessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec.Code, body
}

func TestLiveness(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)
	if err := NewHealthHandler(nil).Liveness(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestReadiness_AllHealthy(t *testing.T) {
	ok := func(context.Context) error { return nil }
	code, body := runReadiness(t, map[string]PingFunc{"mongodb": ok, "redis": ok})
	if code != http.StatusOK || body.Status != "ok" {
		t.Fatalf("expected 200/ok, got %d/%s", code, body.Status)
	}
	if len(body.Dependencies) != 2 {
		t.Errorf("expected 2 dependencies, got %d", len(body.Dependencies))
	}
}

func TestReadiness_Degraded(t *testing.T) {
	code, body := runReadiness(t, map[string]PingFunc{
		"mongodb": func(context.Context) error { return nil },
		"redis":   func(context.Context) error { return errors.New("connection refused") },
	})
	if code != http.StatusServiceUnavailable || body.Status != "degraded" {
		t.Fatalf("expected 503/degraded, got %d/%s", code, body.Status)
	}
	if r := body.Dependencies["redis"]; r.Status != "unhealthy" || r.Error != "connection refused" {
		t.Errorf("unexpected redis status: %+v", r)
	}
	if m := body.Dependencies["mongodb"]; m.Status != "ok" {
		t.Errorf("unexpected mongodb status: %+v", m)
	}
}
