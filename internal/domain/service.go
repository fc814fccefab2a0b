package domain

import (
	"net/url"
	"strings"
)

// ServiceVariant identifies the hosting service a URL belongs to
type ServiceVariant string

const (
	// VariantMega is the Mega.nz encrypted-link host; share URLs carry the
	// decryption key in the fragment.
	VariantMega ServiceVariant = "mega"
	// VariantVideo covers video-sharing sites handled by yt-dlp
	VariantVideo ServiceVariant = "video"
	// VariantMediaFire is the MediaFire file locker
	VariantMediaFire ServiceVariant = "mediafire"
	// VariantGoogleDrive is a Google Drive share link
	VariantGoogleDrive ServiceVariant = "gdrive"
	// VariantUnknown means no service pattern matched
	VariantUnknown ServiceVariant = "unknown"
)

// Classify identifies the hosting service from the URL string alone.
// It is a pure function: no network lookups, no redirect resolution.
// URLs that match no known service classify as VariantUnknown; whether
// that is fatal is the orchestrator's call.
func Classify(rawURL string) ServiceVariant {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return VariantUnknown
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")

	switch {
	case host == "mega.nz" || host == "mega.co.nz":
		return VariantMega
	case host == "youtube.com" || host == "m.youtube.com" || host == "youtu.be":
		return VariantVideo
	case host == "mediafire.com" || strings.HasSuffix(host, ".mediafire.com"):
		return VariantMediaFire
	case host == "drive.google.com" || host == "docs.google.com":
		return VariantGoogleDrive
	default:
		return VariantUnknown
	}
}

// ValidateVariant checks if a service variant is one the engine knows
func ValidateVariant(variant ServiceVariant) bool {
	switch variant {
	case VariantMega, VariantVideo, VariantMediaFire, VariantGoogleDrive, VariantUnknown:
		return true
	default:
		return false
	}
}
