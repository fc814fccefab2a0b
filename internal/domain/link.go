package domain

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// ParsedLink is the normalized form of a download URL. It is created once
// per request and treated as immutable; strategies receive it by pointer
// but never modify it.
type ParsedLink struct {
	Variant  ServiceVariant
	RawURL   string
	ObjectID string
	// Key is the decoded key material from the URL fragment. Present only
	// for VariantMega links. The internal split into cipher key and
	// IV/nonce belongs to the decryption step, not the parser.
	Key []byte
	// IsFolder marks Mega folder links (/folder/<id> shape)
	IsFolder bool
	// ExtraParams carries leftover query parameters some services need
	ExtraParams map[string]string
	// Creds is the caller-supplied credential; zero value means anonymous
	Creds Credential
}

// ParseLink normalizes a URL into a ParsedLink according to its service
// variant. Mega links must match /file/<id>#<key> or /folder/<id>#<key>
// with a base64url (unpadded) key in the fragment. For every other variant
// the object identifier is derived from the URL path.
func ParseLink(rawURL string) (*ParsedLink, error) {
	rawURL = strings.TrimSpace(rawURL)
	variant := Classify(rawURL)

	if variant == VariantMega {
		return parseMegaLink(rawURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, WrapError(ErrorMalformedLink, "invalid URL", err)
	}

	link := &ParsedLink{
		Variant:     variant,
		RawURL:      rawURL,
		ObjectID:    objectIDFromPath(variant, u),
		ExtraParams: flattenQuery(u.Query()),
	}
	if link.ObjectID == "" {
		return nil, NewError(ErrorMalformedLink, fmt.Sprintf("no object identifier in URL %s", rawURL))
	}
	return link, nil
}

// parseMegaLink extracts the object handle and decryption key from a
// Mega.nz share URL. The key lives in the fragment, base64url encoded
// without padding; a file link without a key is unusable.
func parseMegaLink(rawURL string) (*ParsedLink, error) {
	// Split on the first '#' ourselves: Mega keys may contain characters
	// url.Parse would mangle inside a fragment.
	base, fragment, hasFragment := strings.Cut(rawURL, "#")

	u, err := url.Parse(base)
	if err != nil {
		return nil, WrapError(ErrorMalformedLink, "invalid mega URL", err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) != 2 {
		return nil, NewError(ErrorMalformedLink,
			fmt.Sprintf("mega URL path %q does not match /file/<id> or /folder/<id>", u.Path))
	}

	var isFolder bool
	switch segments[0] {
	case "file":
	case "folder":
		isFolder = true
	default:
		return nil, NewError(ErrorMalformedLink,
			fmt.Sprintf("mega URL path %q does not match /file/<id> or /folder/<id>", u.Path))
	}

	objectID := segments[1]
	if objectID == "" {
		return nil, NewError(ErrorMalformedLink, "empty mega object id")
	}

	if !hasFragment || fragment == "" {
		return nil, NewError(ErrorMalformedLink, "mega URL carries no decryption key fragment")
	}

	key, err := base64.RawURLEncoding.DecodeString(fragment)
	if err != nil {
		return nil, WrapError(ErrorInvalidKeyEncoding, "mega key is not valid base64url", err)
	}

	return &ParsedLink{
		Variant:  VariantMega,
		RawURL:   rawURL,
		ObjectID: objectID,
		Key:      key,
		IsFolder: isFolder,
	}, nil
}

// EncodeMegaLink rebuilds a Mega share URL from an object id and raw key.
// Inverse of parseMegaLink on structure.
func EncodeMegaLink(objectID string, key []byte, isFolder bool) string {
	kind := "file"
	if isFolder {
		kind = "folder"
	}
	return fmt.Sprintf("https://mega.nz/%s/%s#%s", kind, objectID, base64.RawURLEncoding.EncodeToString(key))
}

// objectIDFromPath derives the service object identifier from the URL path
func objectIDFromPath(variant ServiceVariant, u *url.URL) string {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch variant {
	case VariantGoogleDrive:
		// https://drive.google.com/file/d/<id>/view or ...?id=<id>
		if id := u.Query().Get("id"); id != "" {
			return id
		}
		for i, seg := range segments {
			if seg == "d" && i+1 < len(segments) {
				return segments[i+1]
			}
		}
	case VariantVideo:
		// youtu.be/<id> or youtube.com/watch?v=<id>
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		if len(segments) > 0 && segments[len(segments)-1] != "" {
			return segments[len(segments)-1]
		}
	case VariantMediaFire:
		// mediafire.com/file/<id>/<name>/file or download host URLs where
		// the id is the segment after "file"
		for i, seg := range segments {
			if seg == "file" && i+1 < len(segments) {
				return segments[i+1]
			}
		}
		if len(segments) >= 2 {
			return segments[1]
		}
	default:
		if len(segments) > 0 && segments[len(segments)-1] != "" {
			return segments[len(segments)-1]
		}
	}
	// Fall back to the host-relative path so the id is never empty for a
	// URL that has any path at all.
	if p := strings.Trim(u.Path, "/"); p != "" {
		return p
	}
	return ""
}

func flattenQuery(values url.Values) map[string]string {
	if len(values) == 0 {
		return nil
	}
	params := make(map[string]string, len(values))
	for k := range values {
		params[k] = values.Get(k)
	}
	return params
}
