package walker

import (
	"fmt"
	"net/url"
	"strconv"
)

// Source describes the remote paginated comment endpoint. It builds the
// request URLs for top-level comment pages and nested reply pages.
type Source struct {
	// BaseURL is the source root, without a trailing slash.
	BaseURL string

	// Key is the access credential sent with every request.
	Key string

	// PageSize is the requested items per page.
	PageSize int
}

// CommentsURL builds the top-level page request for a target identifier.
// An empty cursor requests the first page.
func (s Source) CommentsURL(target, cursor string) string {
	return s.build("/comments", "target", target, cursor)
}

// RepliesURL builds the nested reply page request for a parent comment.
func (s Source) RepliesURL(parent, cursor string) string {
	return s.build("/replies", "parent", parent, cursor)
}

func (s Source) build(path, idParam, id, cursor string) string {
	q := url.Values{}
	q.Set("key", s.Key)
	q.Set(idParam, id)
	q.Set("pageSize", strconv.Itoa(s.PageSize))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	return fmt.Sprintf("%s%s?%s", s.BaseURL, path, q.Encode())
}
