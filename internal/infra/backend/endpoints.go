package backend

import (
	"net/url"
	"strings"
)

// Collection is the endpoint of a whole resource, e.g. /news.
func Collection(resource string) string {
	return "/" + strings.Trim(resource, "/")
}

// Item is the endpoint of one resource item, e.g. /news/42.
func Item(resource, id string) string {
	return Collection(resource) + "/" + url.PathEscape(id)
}

// Sub is a nested collection of an item, e.g. /news/42/comments.
func Sub(resource, id, sub string) string {
	return Item(resource, id) + "/" + strings.Trim(sub, "/")
}

// Vote is the two-id poll vote endpoint /poll/{pollID}/vote/{optionID}.
func Vote(pollID, optionID string) string {
	return Item("poll", pollID) + "/vote/" + url.PathEscape(optionID)
}

// WithQuery appends query parameters to an endpoint.
func WithQuery(endpoint string, q url.Values) string {
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}
