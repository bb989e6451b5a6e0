package localfile

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	Scheme = "imagemin"
	prefix = Scheme + "://"
)

var ErrMalformedURL = errors.New("malformed local file url")

var servableExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".avif": "image/avif",
}

// URL builds the display URL for an absolute path.
func URL(path string) string {
	return prefix + url.PathEscape(path)
}

// ParseURL maps imagemin://<escaped path> back to the path.
func ParseURL(raw string) (string, error) {
	if !strings.HasPrefix(raw, prefix) {
		return "", fmt.Errorf("%w: missing %s scheme", ErrMalformedURL, Scheme)
	}
	return decodePath(strings.TrimPrefix(raw, prefix))
}

func decodePath(encoded string) (string, error) {
	path, err := url.PathUnescape(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if path == "" || strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("%w: empty or invalid path", ErrMalformedURL)
	}
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: path must be absolute", ErrMalformedURL)
	}
	return filepath.Clean(path), nil
}

// Handler serves files named by the escaped path after the mount prefix.
// Only image files are served and only for GET and HEAD.
type Handler struct {
	Prefix string
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	encoded := strings.TrimPrefix(r.URL.EscapedPath(), h.Prefix)
	path, err := decodePath(encoded)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	contentType, ok := servableExtensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		http.Error(w, "not an image file", http.StatusForbidden)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "file not readable", http.StatusForbidden)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		http.Error(w, "not a regular file", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
