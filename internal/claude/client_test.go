package claude

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization header: got %q", got)
		}
		if r.Header.Get("anthropic-beta") == "" {
			t.Error("missing anthropic-beta header")
		}
		w.Write([]byte(`{
			"five_hour": {"utilization": 42.5, "resets_at": "2026-08-20T15:00:00Z"},
			"seven_day": {"utilization": 61.0, "resets_at": "2026-08-24T00:00:00Z"}
		}`))
	}))
	defer srv.Close()

	c := &Client{
		BaseURL: srv.URL,
		Token:   func() (string, error) { return "test-token", nil },
	}
	resp, err := c.FetchUsage()
	if err != nil {
		t.Fatalf("FetchUsage: %v", err)
	}
	if resp.FiveHour == nil || resp.FiveHour.Utilization != 42.5 {
		t.Errorf("five_hour: got %+v", resp.FiveHour)
	}
	if resp.SevenDay == nil || resp.SevenDay.ResetsAt != "2026-08-24T00:00:00Z" {
		t.Errorf("seven_day: got %+v", resp.SevenDay)
	}
}

func TestFetchUsageMissingWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"five_hour": {"utilization": 10, "resets_at": ""}}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, Token: func() (string, error) { return "t", nil }}
	resp, err := c.FetchUsage()
	if err != nil {
		t.Fatalf("FetchUsage: %v", err)
	}
	if resp.SevenDay != nil {
		t.Errorf("expected absent seven_day, got %+v", resp.SevenDay)
	}
}

func TestFetchUsageErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status":
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("expired"))
		case "/body":
			w.Write([]byte(`{"error": "rate limited"}`))
		}
	}))
	defer srv.Close()

	for _, path := range []string{"/status", "/body"} {
		c := &Client{BaseURL: srv.URL + path, Token: func() (string, error) { return "t", nil }}
		if _, err := c.FetchUsage(); err == nil {
			t.Errorf("%s: expected error", path)
		}
	}
}

func TestParseResetsAt(t *testing.T) {
	cases := []struct {
		in   string
		want *time.Time
	}{
		{"", nil},
		{"not a time", nil},
		{"2026-08-20T15:00:00Z", timePtr(time.Date(2026, 8, 20, 15, 0, 0, 0, time.UTC))},
		{"2026-08-20T15:00:00.123456789Z", timePtr(time.Date(2026, 8, 20, 15, 0, 0, 123456789, time.UTC))},
	}
	for _, tc := range cases {
		got := ParseResetsAt(tc.in)
		switch {
		case tc.want == nil && got != nil:
			t.Errorf("ParseResetsAt(%q): got %v want nil", tc.in, got)
		case tc.want != nil && (got == nil || !got.Equal(*tc.want)):
			t.Errorf("ParseResetsAt(%q): got %v want %v", tc.in, got, tc.want)
		}
	}
}

func timePtr(t time.Time) *time.Time { return &t }
