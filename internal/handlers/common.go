package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shaibs3/careportal/internal/auth"
)

const apiPrefix = "/api/v1"

// Middleware wraps a handler, e.g. auth.Authenticator.Middleware
type Middleware func(http.Handler) http.Handler

var errInvalidID = errors.New("invalid id")

// parseOptionalID treats "", "null" and "undefined" as no id
func parseOptionalID(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "", "null", "undefined":
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return nil, errInvalidID
	}
	return &id, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// userID returns the caller resolved by the auth middleware
func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Access denied, token missing!"})
	}
	return id, ok
}

// looseString accepts a JSON string, number, bool or null and keeps its text
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	*s = looseString(data)
	return nil
}
