package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"ledgerdesk/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	fallback := core.Month{Year: 2025, Month: 3}
	tests := []struct {
		name    string
		query   url.Values
		want    core.Month
		wantOK  bool
		wantErr bool
	}{
		{"both values provided", url.Values{"year": {"2024"}, "month": {"12"}}, core.Month{Year: 2024, Month: 12}, true, false},
		{"only year", url.Values{"year": {"2023"}}, core.Month{Year: 2023, Month: 3}, true, false},
		{"only month", url.Values{"month": {"5"}}, core.Month{Year: 2025, Month: 5}, true, false},
		{"none", url.Values{}, fallback, false, false},
		{"non-numeric month", url.Values{"month": {"abc"}}, fallback, true, true},
		{"non-numeric year", url.Values{"year": {"abc"}, "month": {"4"}}, fallback, true, true},
		{"out of range is passed through", url.Values{"month": {"13"}}, core.Month{Year: 2025, Month: 13}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := ParseMonthParams(tt.query, fallback)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMonthParams() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseMonthParams() = %+v, %v; want %+v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"accountId": 2, "payee": "Bakery", "amount": "12,34", "cleared": true}`
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}
	if id := parser.GetInt64("accountId"); id != 2 {
		t.Errorf("GetInt64('accountId') = %d, want 2", id)
	}
	if payee := parser.Get("payee"); payee != "Bakery" {
		t.Errorf("Get('payee') = %q, want 'Bakery'", payee)
	}
	if amount := parser.Get("amount"); amount != "12,34" {
		t.Errorf("Get('amount') = %q, want '12,34'", amount)
	}
	if !parser.GetBool("cleared") {
		t.Error("GetBool('cleared') = false, want true")
	}
	if !parser.Has("payee") || parser.Has("memo") {
		t.Error("Has() reported the wrong keys")
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "payee=Corner+Shop&amount=-3.5&cleared=on&category=%01"
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	if payee := parser.Get("payee"); payee != "Corner Shop" {
		t.Errorf("Get('payee') = %q, want 'Corner Shop'", payee)
	}
	if !parser.GetBool("cleared") {
		t.Error("GetBool('cleared') = false, want true")
	}
	if c := parser.Get("category"); c != "" {
		t.Errorf("control characters must be stripped, got %q", c)
	}
	if n := parser.GetInt64("category"); n != 0 {
		t.Errorf("GetInt64 of blank = %d, want 0", n)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestRequestBodyParser_BadJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(`{"payee":`))
	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestRequireMethod(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		allowed []string
		wantErr bool
	}{
		{"POST allowed", http.MethodPost, []string{http.MethodPost}, false},
		{"GET allowed with multiple", http.MethodGet, []string{http.MethodGet, http.MethodHead}, false},
		{"GET not allowed", http.MethodGet, []string{http.MethodPost}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			result := RequireMethod(req, tt.allowed...)

			if tt.wantErr && result == nil {
				t.Error("Expected error response but got nil")
			}
			if !tt.wantErr && result != nil {
				t.Error("Expected nil but got error response")
			}
		})
	}
}

func TestRequirePOSTAndGET(t *testing.T) {
	if RequirePOST(httptest.NewRequest(http.MethodPost, "/test", nil)) != nil {
		t.Error("RequirePOST should allow POST requests")
	}
	if RequirePOST(httptest.NewRequest(http.MethodGet, "/test", nil)) == nil {
		t.Error("RequirePOST should reject GET requests")
	}
	if RequireGET(httptest.NewRequest(http.MethodHead, "/test", nil)) != nil {
		t.Error("RequireGET should allow HEAD requests")
	}
	if RequireGET(httptest.NewRequest(http.MethodPost, "/test", nil)) == nil {
		t.Error("RequireGET should reject POST requests")
	}
}
