package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHealth_Returns200WithMetadata(t *testing.T) {
	h := New("voicebridge", "1.2.3")
	h.started = time.Now().Add(-90 * time.Second)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body status
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if !body.OK {
		t.Error("ok = false, want true")
	}
	if body.Service != "voicebridge" || body.Version != "1.2.3" {
		t.Errorf("service/version = %q/%q", body.Service, body.Version)
	}
	if body.UptimeSeconds < 89 {
		t.Errorf("uptime_seconds = %v, want >= 89", body.UptimeSeconds)
	}
	if _, err := time.Parse(time.RFC3339, body.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", body.Timestamp, err)
	}
}

func TestHealth_ContentType(t *testing.T) {
	h := New("voicebridge", "dev")
	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	ct := rec.Header().Get("Content-Type")
	if ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestBanner_NamesTheService(t *testing.T) {
	h := New("voicebridge", "dev")
	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	h.Banner(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Body.String(); !strings.Contains(got, "voicebridge") {
		t.Errorf("banner %q does not name the service", got)
	}
}

func TestRegister_RoutesWork(t *testing.T) {
	h := New("voicebridge", "dev")
	mux := http.NewServeMux()
	h.Register(mux)

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/health", http.StatusOK},
		{"/", http.StatusOK},
		{"/nope", http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}
