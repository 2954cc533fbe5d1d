package server

import (
	"net/url"
)

// uriToPath converts a file:// URI to a filesystem path. Anything that is not
// a file URI is returned as is.
func uriToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	// u.Path is already percent-decoded.
	path := u.Path

	// Handle Windows paths (remove leading slash if present and path starts with drive letter)
	if len(path) > 2 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}
	return path
}
