package domain

import (
	"mime"
	"net/url"
	"strings"
)

// SafeFilename replaces every character outside [0-9A-Za-z._-] with an
// underscore so inferred names are safe on any filesystem.
func SafeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, c := range name {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z',
			c == '.', c == '_', c == '-':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "download"
	}
	return b.String()
}

// FilenameFromHeaders extracts a filename from a Content-Disposition header
// value, falling back to the last URL path segment.
func FilenameFromHeaders(rawURL, contentDisposition string) string {
	if contentDisposition != "" {
		if _, params, err := mime.ParseMediaType(contentDisposition); err == nil {
			if name := params["filename"]; name != "" {
				return SafeFilename(name)
			}
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		if unescaped, err := url.PathUnescape(u.Path); err == nil {
			segments := strings.Split(strings.Trim(unescaped, "/"), "/")
			if len(segments) > 0 && segments[len(segments)-1] != "" {
				return SafeFilename(segments[len(segments)-1])
			}
		}
	}
	return "download"
}
