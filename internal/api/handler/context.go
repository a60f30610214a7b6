package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/api/middleware"
)

// maxBodyBytes bounds request bodies. A batch of candidate routes with
// detailed segments stays well below it.
const maxBodyBytes = 1 << 20

// GetCallerID retrieves the authenticated caller ID from the context.
// This is a convenience wrapper around middleware.GetCallerID.
func GetCallerID(ctx context.Context) string {
	return middleware.GetCallerID(ctx)
}

// decodeJSON decodes a single JSON document from the request body into v.
// Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON body: trailing data")
	}
	return nil
}

// queryInt parses an integer query parameter, returning def when it is
// absent and clamping the result to [lo, hi].
func queryInt(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return min(max(n, lo), hi), nil
}
