package localfile

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
)

func TestURLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "my photos", "sun & sea #1.png")
	got, err := ParseURL(URL(path))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != path {
		t.Fatalf("expected %s, got %s", path, got)
	}
}

func TestParseURLRejectsMalformedInput(t *testing.T) {
	cases := []string{
		"",
		"file:///tmp/a.png",
		"imagemin://",
		"imagemin://%zz",
		"imagemin://relative%2Fa.png",
		"imagemin://%2Ftmp%2Fa%00.png",
	}
	for _, raw := range cases {
		if _, err := ParseURL(raw); !errors.Is(err, ErrMalformedURL) {
			t.Fatalf("%q: expected ErrMalformedURL, got %v", raw, err)
		}
	}
}

func TestHandlerServesImages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out_compressed.png")
	payload := []byte("\x89PNG fake")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	h := Handler{Prefix: "/imagemin/"}
	req := httptest.NewRequest(http.MethodGet, "/imagemin/"+url.PathEscape(path), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("expected image/png, got %s", got)
	}
	if rec.Body.String() != string(payload) {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestHandlerRejectsBadRequests(t *testing.T) {
	dir := t.TempDir()
	textFile := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(textFile, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	dirNamedLikeImage := filepath.Join(dir, "folder.png")
	if err := os.Mkdir(dirNamedLikeImage, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cases := []struct {
		name   string
		method string
		target string
		want   int
	}{
		{name: "relative path", method: http.MethodGet, target: "/imagemin/a.png", want: http.StatusBadRequest},
		{name: "not an image", method: http.MethodGet, target: "/imagemin/" + url.PathEscape(textFile), want: http.StatusForbidden},
		{name: "directory", method: http.MethodGet, target: "/imagemin/" + url.PathEscape(dirNamedLikeImage), want: http.StatusBadRequest},
		{name: "missing", method: http.MethodGet, target: "/imagemin/" + url.PathEscape(filepath.Join(dir, "gone.png")), want: http.StatusNotFound},
		{name: "write method", method: http.MethodPost, target: "/imagemin/" + url.PathEscape(filepath.Join(dir, "gone.png")), want: http.StatusMethodNotAllowed},
	}

	h := Handler{Prefix: "/imagemin/"}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.target, nil))
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}
