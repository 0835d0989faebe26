package relayer

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	// maxResponseBytes bounds every response body read.
	maxResponseBytes = 8 << 20
	// maxErrorBodyBytes bounds the body copied into an UnexpectedStatusError.
	maxErrorBodyBytes = 512
)

type response struct {
	method string
	url    string
	status int
	header http.Header
	body   []byte
}

// readAllWithLimit reads at most limit bytes from r and reports whether more were
// available.
func readAllWithLimit(r io.Reader, limit int64) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}

func bodySnippet(body []byte) string {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBodyBytes {
		msg = msg[:maxErrorBodyBytes] + "...(truncated)"
	}
	return msg
}

// requestHeaders builds the headers shared by every relayer call.
func requestHeaders(requestID, userAgent string, hasBody bool) http.Header {
	h := make(http.Header)
	h.Set("Accept", "application/json")
	if hasBody {
		h.Set("Content-Type", "application/json")
	}
	if requestID != "" {
		h.Set("X-Request-ID", requestID)
	}
	if userAgent != "" {
		h.Set("User-Agent", userAgent)
	}
	return h
}

func joinURL(base, path string) (string, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return "", fmt.Errorf("base url is required")
	}
	return base + path, nil
}
