package kit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeJSON(t *testing.T) {
	type req struct {
		Name string `json:"name"`
	}

	tests := []struct {
		body    string
		wantErr bool
	}{
		{`{"name":"x"}`, false},
		{`{"name":"x","extra":1}`, true},
		{`{"name":"x"}{"name":"y"}`, true},
		{`{`, true},
	}

	for _, tc := range tests {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
		w := httptest.NewRecorder()

		var v req
		err := DecodeJSON(w, r, &v)
		if (err != nil) != tc.wantErr {
			t.Fatalf("body=%s err=%v wantErr=%v", tc.body, err, tc.wantErr)
		}
	}
}

func TestBearerAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		token  string
		header string
		want   int
	}{
		{"tok", "Bearer tok", http.StatusOK},
		{"tok", "Bearer nope", http.StatusForbidden},
		{"tok", "tok", http.StatusForbidden},
		{"", "Bearer ", http.StatusForbidden},
	}

	for _, tc := range tests {
		r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		r.Header.Set("Authorization", tc.header)
		w := httptest.NewRecorder()

		BearerAuth(tc.token)(ok).ServeHTTP(w, r)
		if w.Code != tc.want {
			t.Fatalf("token=%q header=%q status=%d want=%d", tc.token, tc.header, w.Code, tc.want)
		}
	}
}

func TestNewLogger_UnknownLevelFallsBack(t *testing.T) {
	l := NewLogger("chembase", "loud")
	if l == nil {
		t.Fatalf("nil logger")
	}
	if !l.Core().Enabled(0) {
		t.Fatalf("info level disabled")
	}
}
