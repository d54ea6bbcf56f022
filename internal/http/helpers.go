package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/core"
)

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// parseFilter reads the optional type/category/startDate/endDate query
// parameters. A date that does not parse is an error; the other values
// pass through and match nothing if bogus.
func parseFilter(r *http.Request) (core.Filter, error) {
	q := r.URL.Query()
	f := core.Filter{
		Type:     q.Get("type"),
		Category: q.Get("category"),
	}

	if v := q.Get("startDate"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Filter{}, fmt.Errorf("invalid startDate %q: expected YYYY-MM-DD", v)
		}
		f.StartDate = d
	}
	if v := q.Get("endDate"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Filter{}, fmt.Errorf("invalid endDate %q: expected YYYY-MM-DD", v)
		}
		f.EndDate = d
	}

	return f, nil
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
