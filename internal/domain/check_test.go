package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func strPtr(s string) *string { return &s }

// --- URLSpec Tests ---

func TestURLSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    URLSpec
		wantErr error
	}{
		{"plain url", URLSpec{URL: "http://ok.example"}, nil},
		{"domain check with zone", URLSpec{URL: "https://a.example/path", DomainCheck: true, HostedZoneID: strPtr("Z123")}, nil},
		{"empty url", URLSpec{URL: ""}, ErrInvalidURL},
		{"not a url", URLSpec{URL: "not a url"}, ErrInvalidURL},
		{"domain check without zone", URLSpec{URL: "http://a.example", DomainCheck: true}, ErrMissingHostedZone},
		{"domain check with blank zone", URLSpec{URL: "http://a.example", DomainCheck: true, HostedZoneID: strPtr("  ")}, ErrMissingHostedZone},
		{"zone without domain check", URLSpec{URL: "http://a.example", HostedZoneID: strPtr("Z123")}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestURLSpec_ZoneID(t *testing.T) {
	if got := (URLSpec{}).ZoneID(); got != "" {
		t.Errorf("expected empty zone, got %q", got)
	}
	if got := (URLSpec{HostedZoneID: strPtr(" Z1 ")}).ZoneID(); got != "Z1" {
		t.Errorf("expected Z1, got %q", got)
	}
}

// --- CheckResponse Tests ---

func TestCheckResponse_Succeeded(t *testing.T) {
	ok := CheckResult{URL: "a", Status: "200"}
	tests := []struct {
		name    string
		results []CheckResult
		want    bool
	}{
		{"all 200", []CheckResult{ok, ok}, true},
		{"one 500", []CheckResult{ok, {URL: "b", Status: "500"}}, false},
		{"sentinel", []CheckResult{{URL: "b", Status: StatusUnreachable}}, false},
		{"201 is not ok", []CheckResult{{URL: "b", Status: "201"}}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (CheckResponse{Results: tt.results}).Succeeded(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNewFailedResult(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	got := NewFailedResult("http://down.example", at, errors.New("connection refused"))

	want := CheckResult{
		URL:       "http://down.example",
		Status:    StatusUnreachable,
		Timestamp: "2025-01-02T02:04:05Z",
		Error:     "connection refused",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

// --- Envelope Tests ---

func TestEnvelope_Headers(t *testing.T) {
	names := DefaultEventNames()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	got := Envelope{Kind: EventKindSuccess, TraceID: "trace-1", EmittedAt: at}.Headers(names)
	want := map[string]any{
		"event":    "health-check:success",
		"trace-id": "trace-1",
		"date":     "2025-06-01T12:00:00Z",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}

	errHeaders := Envelope{Kind: EventKindError, TraceID: "trace-1", EmittedAt: at}.Headers(names)
	if errHeaders["event"] != "health-check:error" {
		t.Errorf("expected error event, got %v", errHeaders["event"])
	}
}

// --- Wire format Tests ---

func TestCheckResponse_WireFormat(t *testing.T) {
	resp := CheckResponse{Results: []CheckResult{
		{URL: "http://ok.example", Status: "200", Timestamp: "2025-06-01T12:00:00Z"},
		{URL: "http://down.example", Status: StatusUnreachable, Timestamp: "2025-06-01T12:00:00Z", Error: "connection refused"},
	}}

	got, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"responses":[` +
		`{"url":"http://ok.example","status":"200","date":"2025-06-01T12:00:00Z"},` +
		`{"url":"http://down.example","status":"000","date":"2025-06-01T12:00:00Z","error":"connection refused"}` +
		`]}`
	if string(got) != want {
		t.Errorf("wire format mismatch:\nwant %s\ngot  %s", want, got)
	}
}

func TestCheckRequest_WireFormat(t *testing.T) {
	body := `{"urls":[{"url":"http://a.example","domainCheck":true,"hostedZoneId":"Z1"},{"url":"http://b.example"}]}`

	var req CheckRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := CheckRequest{URLs: []URLSpec{
		{URL: "http://a.example", DomainCheck: true, HostedZoneID: strPtr("Z1")},
		{URL: "http://b.example"},
	}}
	if diff := cmp.Diff(want, req); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
}
