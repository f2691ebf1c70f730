package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func okProbe(detail string) Probe {
	return func(context.Context) (string, error) { return detail, nil }
}

func failingProbe(msg string) Probe {
	return func(context.Context) (string, error) { return "", errors.New(msg) }
}

func TestHandler_RunChecks(t *testing.T) {
	type reg struct {
		name     string
		critical bool
		probe    Probe
	}
	tests := []struct {
		name   string
		checks []reg
		want   Status
	}{
		{
			name: "no checks",
			want: StatusHealthy,
		},
		{
			name: "optional failure degrades",
			checks: []reg{
				{"storage", true, okProbe("local")},
				{"extractors", false, failingProbe("no extractor for pdf")},
			},
			want: StatusDegraded,
		},
		{
			name: "critical failure wins",
			checks: []reg{
				{"extractors", false, failingProbe("no extractor for pdf")},
				{"storage", true, failingProbe("down")},
			},
			want: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler("test")
			for _, c := range tt.checks {
				h.Register(c.name, c.critical, c.probe)
			}
			report := h.RunChecks(context.Background())
			if report.Status != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, report.Status)
			}
			if len(report.Checks) != len(tt.checks) {
				t.Fatalf("Expected %d results, got %d", len(tt.checks), len(report.Checks))
			}
			for i, c := range tt.checks {
				if report.Checks[i].Name != c.name {
					t.Errorf("Expected check %d to be %s, got %s", i, c.name, report.Checks[i].Name)
				}
			}
		})
	}
}

func TestHandler_Routes(t *testing.T) {
	h := NewHandler("1.2.3")
	h.Register("storage", true, StorageCheck("s3", func(context.Context, string) (bool, error) {
		return false, errors.New("connection refused")
	}))

	r := chi.NewRouter()
	h.Routes(r)

	tests := []struct {
		path       string
		wantStatus int
		wantHealth Status
		wantChecks int
	}{
		{"/health/live", http.StatusOK, StatusHealthy, 0},
		{"/health/ready", http.StatusServiceUnavailable, StatusUnhealthy, 1},
		{"/health", http.StatusOK, StatusUnhealthy, 1},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			var report Report
			if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if report.Status != tt.wantHealth || report.Version != "1.2.3" {
				t.Errorf("Unexpected response: %+v", report)
			}
			if len(report.Checks) != tt.wantChecks {
				t.Fatalf("Expected %d checks, got %+v", tt.wantChecks, report.Checks)
			}
			if tt.wantChecks > 0 {
				c := report.Checks[0]
				if c.Name != "storage" || c.Detail != "s3" || c.Error == "" {
					t.Errorf("Unexpected storage check: %+v", c)
				}
			}
		})
	}
}

func TestStorageCheck(t *testing.T) {
	var looked string
	probe := StorageCheck("local", func(_ context.Context, path string) (bool, error) {
		looked = path
		return false, nil
	})
	detail, err := probe(context.Background())
	if err != nil || detail != "local" {
		t.Errorf("Expected healthy local storage, got %q (%v)", detail, err)
	}
	if looked != storageMarker {
		t.Errorf("Expected lookup of %s, got %s", storageMarker, looked)
	}
}

func TestFormatCheck(t *testing.T) {
	registered := map[string]bool{"pdf": true, "txt": true}
	lookup := func(format string) error {
		if !registered[format] {
			return fmt.Errorf("unsupported format: %s", format)
		}
		return nil
	}

	detail, err := FormatCheck(lookup, "pdf", "txt")(context.Background())
	if err != nil || detail != "pdf, txt" {
		t.Errorf("Expected pdf and txt available, got %q (%v)", detail, err)
	}

	if _, err := FormatCheck(lookup, "pdf", "epub")(context.Background()); err == nil {
		t.Error("Expected error for missing epub extractor")
	}
}
