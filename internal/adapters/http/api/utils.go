package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/matchreport/internal/domain/stats"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Query parameters that override the stat display hint.
const (
	queryStatsOrder    = "stats_order"
	querySelectedStats = "selected_stats"
	queryLimit         = "limit"
)

// decodeBody reads exactly one JSON value into v.
func decodeBody(op string, r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return NewKind(op, ErrBadRequest)
		}
		return WrapKind(op, ErrBadRequest, err)
	}
	if dec.More() {
		return WrapKind(op, ErrBadRequest, errors.New("trailing data after body"))
	}
	return nil
}

// hintFromQuery reads the stat display hint from the query string.
// Parameters that are absent leave the bag's own hint in force.
func hintFromQuery(r *http.Request) stats.Hint {
	q := r.URL.Query()
	return stats.Hint{
		StatsOrder:    splitList(q[queryStatsOrder]),
		SelectedStats: splitList(q[querySelectedStats]),
	}
}

// splitList flattens repeated and comma separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// limitFromQuery returns the requested page size; 0 means the server default.
func limitFromQuery(op string, r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(queryLimit))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, WrapKind(op, ErrBadRequest, errors.New("limit must be a non-negative integer"))
	}
	return n, nil
}
