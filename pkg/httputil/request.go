package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// ParseJSON decodes JSON from the request body into the destination
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseJSONOrError decodes JSON and writes error response on failure
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := ParseJSON(r, dest); err != nil {
		WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

// ParsePathInt64 extracts and parses an int64 path parameter
func ParsePathInt64(r *http.Request, key string) (int64, error) {
	vars := mux.Vars(r)
	str := vars[key]
	if str == "" {
		return 0, fmt.Errorf("missing path parameter: %s", key)
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %s", key, str)
	}
	return val, nil
}

// ParsePathInt64OrError parses an int64 path parameter and writes a 400 on failure
func ParsePathInt64OrError(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	val, err := ParsePathInt64(r, key)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return 0, false
	}
	return val, true
}

// ParsePathString extracts a string path parameter
func ParsePathString(r *http.Request, key string) string {
	return mux.Vars(r)[key]
}

// ParseQueryInt parses an integer query parameter with a default value
func ParseQueryInt(r *http.Request, key string, defaultValue int) int {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultValue
	}
	return val
}

// ParseQueryBool parses a boolean query parameter with a default value
func ParseQueryBool(r *http.Request, key string, defaultValue bool) bool {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultValue
	}
	val, err := strconv.ParseBool(str)
	if err != nil {
		return defaultValue
	}
	return val
}

// ParseQueryString parses a string query parameter with a default value
func ParseQueryString(r *http.Request, key, defaultValue string) string {
	if str := r.URL.Query().Get(key); str != "" {
		return str
	}
	return defaultValue
}

// Pagination holds normalized limit/offset values parsed from the query string.
type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination parses limit/offset query parameters, clamping limit to
// [1, maxLimit].
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	limit := ParseQueryInt(r, "limit", defaultLimit)
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := ParseQueryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	return Pagination{Limit: limit, Offset: offset}
}

// RequireNonEmpty returns a validation message when value is empty
func RequireNonEmpty(field, value string) string {
	if value == "" {
		return fmt.Sprintf("%s é obrigatório", field)
	}
	return ""
}

// RequirePositive returns a validation message when value is not positive
func RequirePositive(field string, value int64) string {
	if value <= 0 {
		return fmt.Sprintf("%s deve ser positivo", field)
	}
	return ""
}

// ValidateAll collects non-empty validation messages and writes a 400 when
// any are present. Returns true when all checks passed.
func ValidateAll(w http.ResponseWriter, checks ...string) bool {
	var details []string
	for _, msg := range checks {
		if msg != "" {
			details = append(details, msg)
		}
	}
	if len(details) > 0 {
		WriteErr(w, Validation("dados inválidos", details...))
		return false
	}
	return true
}
