// Package testutil provides testing utilities for commentpulse.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/commentpulse/commentpulse/pkg/comments"
)

// Page is one scripted source response.
type Page struct {
	Items      []comments.RawItem `json:"items"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

// MockSource is a configurable mock of the paginated comment source.
// Comment pages are scripted per cursor, reply pages per parent and cursor,
// and failures can be injected to exercise retry and isolation paths.
type MockSource struct {
	server *httptest.Server
	mu     sync.Mutex

	commentPages map[string]Page            // cursor -> page
	replyPages   map[string]map[string]Page // parent -> cursor -> page

	commentFailures int             // remaining /comments requests to fail
	failingParents  map[string]bool // parents whose reply pages always fail

	// Tracking
	commentRequests int
	replyRequests   int
	lastKey         string
}

// NewMockSource creates a mock source server.
func NewMockSource() *MockSource {
	mock := &MockSource{
		commentPages:   make(map[string]Page),
		replyPages:     make(map[string]map[string]Page),
		failingParents: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/comments", mock.handleComments)
	mux.HandleFunc("/replies", mock.handleReplies)
	mock.server = httptest.NewServer(mux)

	return mock
}

// URL returns the mock server URL.
func (m *MockSource) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockSource) Close() {
	m.server.Close()
}

// SetCommentsPage scripts the response for a comment page request with the
// given cursor. The first page uses the empty cursor.
func (m *MockSource) SetCommentsPage(cursor string, page Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commentPages[cursor] = page
}

// SetRepliesPage scripts the response for a reply page under a parent.
func (m *MockSource) SetRepliesPage(parent, cursor string, page Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replyPages[parent] == nil {
		m.replyPages[parent] = make(map[string]Page)
	}
	m.replyPages[parent][cursor] = page
}

// FailCommentsTimes makes the next n comment page requests return a
// structured 500 error.
func (m *MockSource) FailCommentsTimes(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commentFailures = n
}

// FailRepliesFor makes every reply request for a parent return a 500.
func (m *MockSource) FailRepliesFor(parent string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failingParents[parent] = true
}

// CommentRequests returns the number of comment page requests served.
func (m *MockSource) CommentRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commentRequests
}

// ReplyRequests returns the number of reply page requests served.
func (m *MockSource) ReplyRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replyRequests
}

// LastKey returns the access key seen on the most recent request.
func (m *MockSource) LastKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastKey
}

func (m *MockSource) handleComments(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")

	m.mu.Lock()
	m.commentRequests++
	m.lastKey = r.URL.Query().Get("key")
	if m.commentFailures > 0 {
		m.commentFailures--
		m.mu.Unlock()
		writeError(w, http.StatusInternalServerError, "injected comments failure")
		return
	}
	page, ok := m.commentPages[cursor]
	m.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "no page for cursor "+cursor)
		return
	}
	writePage(w, page)
}

func (m *MockSource) handleReplies(w http.ResponseWriter, r *http.Request) {
	parent := r.URL.Query().Get("parent")
	cursor := r.URL.Query().Get("cursor")

	m.mu.Lock()
	m.replyRequests++
	m.lastKey = r.URL.Query().Get("key")
	if m.failingParents[parent] {
		m.mu.Unlock()
		writeError(w, http.StatusInternalServerError, "injected replies failure")
		return
	}
	page, ok := m.replyPages[parent][cursor]
	m.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "no reply page for parent "+parent)
		return
	}
	writePage(w, page)
}

func writePage(w http.ResponseWriter, page Page) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if page.Items == nil {
		page.Items = []comments.RawItem{}
	}
	json.NewEncoder(w).Encode(page)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": status, "message": message},
	})
}

// Item builds a raw source item with the given id and text.
func Item(id, text string) comments.RawItem {
	return comments.RawItem{
		ID:          id,
		Text:        text,
		PublishedAt: "2024-05-01T10:00:00Z",
	}
}

// ItemWithReplies builds a raw source item that announces n replies.
func ItemWithReplies(id, text string, n int) comments.RawItem {
	item := Item(id, text)
	item.ReplyCount = n
	return item
}
