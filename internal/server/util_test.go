package server

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestSanitizeBase(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", ""},
		{"api", "/api"},
		{"/api", "/api"},
		{"/api/", "/api"},
		{" api ", "/api"},
	}
	for _, c := range cases {
		if got := sanitizeBase(c.in); got != c.want {
			t.Fatalf("sanitizeBase(%q)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID(" 12 "); err != nil || id != 12 {
		t.Fatalf("parseID(12) = %d, %v", id, err)
	}
	for _, s := range []string{"", "0", "-3", "abc", "1.5"} {
		if _, err := parseID(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestParseLimit(t *testing.T) {
	if n, err := parseLimit(""); err != nil || n != 20 {
		t.Fatalf("default limit = %d, %v", n, err)
	}
	if n, err := parseLimit("5"); err != nil || n != 5 {
		t.Fatalf("limit 5 = %d, %v", n, err)
	}
	for _, s := range []string{"0", "-1", "x", "100000"} {
		if _, err := parseLimit(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { writeJSON(c, 201, map[string]any{"a": 1}) })
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))
	if rec.Code != 201 {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type: %s", ct)
	}
}
