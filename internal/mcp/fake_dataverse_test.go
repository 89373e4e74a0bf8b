package mcp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

// fakeDataverse is a tiny in-memory Web API honouring the filters the
// client sends: "<field> eq false" on booleans, "uniquename eq '<x>'" and
// $top.
type fakeDataverse struct {
	*httptest.Server

	mu         sync.Mutex
	publishers []map[string]any
	solutions  []map[string]any
	posts      []string
	failWith   int
}

var (
	boolFilter   = regexp.MustCompile(`^(\w+) eq (true|false)$`)
	stringFilter = regexp.MustCompile(`^uniquename eq '((?:[^']|'')*)'$`)
)

func newFakeDataverse(t *testing.T) *fakeDataverse {
	t.Helper()
	f := &fakeDataverse{}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeDataverse) addPublisher(unique, friendly, prefix string, readOnly bool) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.publishers = append(f.publishers, map[string]any{
		"publisherid":                    id.String(),
		"friendlyname":                   friendly,
		"uniquename":                     unique,
		"customizationprefix":            prefix,
		"customizationoptionvalueprefix": 72700,
		"description":                    "",
		"isreadonly":                     readOnly,
	})
	return id
}

func (f *fakeDataverse) addSolution(unique, friendly, publisherUnique string, managed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pub map[string]any
	for _, p := range f.publishers {
		if p["uniquename"] == publisherUnique {
			pub = p
		}
	}
	f.solutions = append(f.solutions, map[string]any{
		"solutionid":         uuid.NewString(),
		"friendlyname":       friendly,
		"uniquename":         unique,
		"version":            "1.0.0.0",
		"ismanaged":          managed,
		"_publisherid_value": pub["publisherid"],
		"publisherid":        pub,
	})
}

func (f *fakeDataverse) fail(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = status
}

func (f *fakeDataverse) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

func (f *fakeDataverse) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.failWith != 0 {
		w.WriteHeader(f.failWith)
		_, _ = w.Write([]byte(`{"error":{"code":"0x80072322","message":"Service temporarily unavailable"}}`))
		return
	}

	set := strings.TrimPrefix(r.URL.Path, "/api/data/v9.2/")

	if r.Method == http.MethodPost {
		f.posts = append(f.posts, set)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		body[strings.TrimSuffix(set, "s")+"id"] = uuid.NewString()
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(body)
		return
	}

	var rows []map[string]any
	switch set {
	case "publishers":
		rows = f.publishers
	case "solutions":
		rows = f.solutions
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if matches(row, q.Get("$filter")) {
			out = append(out, row)
		}
	}
	if top, err := strconv.Atoi(q.Get("$top")); err == nil && top < len(out) {
		out = out[:top]
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"value": out})
}

func matches(row map[string]any, filter string) bool {
	if filter == "" {
		return true
	}
	if m := boolFilter.FindStringSubmatch(filter); m != nil {
		return row[m[1]] == (m[2] == "true")
	}
	if m := stringFilter.FindStringSubmatch(filter); m != nil {
		return row["uniquename"] == strings.ReplaceAll(m[1], "''", "'")
	}
	return false
}
