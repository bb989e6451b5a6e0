package api

import (
	"errors"
	"mime"
	"net"
	"net/http"
	"strings"
)

var (
	errForeignHost   = errors.New("request host is not loopback")
	errForeignOrigin = errors.New("cross-origin request refused")
	errNotJSON       = errors.New("content type must be application/json")
)

// withLocalCaller limits the server to pages and clients on this machine.
// Mutating requests with a body must be JSON so browsers preflight them.
func (s *Server) withLocalCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !loopbackRequestHost(r.Host) {
			writeError(w, http.StatusForbidden, errForeignHost)
			return
		}
		if !loopbackOrigin(r) {
			writeError(w, http.StatusForbidden, errForeignOrigin)
			return
		}
		if mutating(r.Method) && r.ContentLength != 0 && !jsonContent(r) {
			writeError(w, http.StatusUnsupportedMediaType, errNotJSON)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loopbackRequestHost(hostport string) bool {
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		host = strings.Trim(hostport, "[]")
	}
	return loopbackHostname(host)
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func jsonContent(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}
