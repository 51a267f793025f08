package domain

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Session is the opaque token naming one isolated remote storage namespace.
type Session string

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Validate reports whether the token can be used as a single path or object
// prefix component.
func (s Session) Validate() error {
	if !sessionPattern.MatchString(string(s)) {
		return fmt.Errorf("invalid session token %q", string(s))
	}
	return nil
}

func (s Session) String() string { return string(s) }

// Payload is an inline image reference in data URL form.
type Payload string

const jpegDataURLPrefix = "data:image/jpeg;base64,"

// NewJPEGPayload wraps encoded JPEG bytes as a data URL.
func NewJPEGPayload(data []byte) Payload {
	return Payload(jpegDataURLPrefix + base64.StdEncoding.EncodeToString(data))
}

// Bytes decodes the payload back into raw image bytes.
func (p Payload) Bytes() ([]byte, error) {
	s := string(p)
	idx := strings.Index(s, ";base64,")
	if !strings.HasPrefix(s, "data:") || idx < 0 {
		return nil, fmt.Errorf("payload is not a base64 data url")
	}
	return base64.StdEncoding.DecodeString(s[idx+len(";base64,"):])
}

// MimeType returns the media type declared by the data URL.
func (p Payload) MimeType() string {
	s := strings.TrimPrefix(string(p), "data:")
	if idx := strings.IndexAny(s, ";,"); idx >= 0 {
		return s[:idx]
	}
	return ""
}

type CapturedPhoto struct {
	Index      int
	Payload    Payload
	CapturedAt time.Time
}

type RemoteFileEntry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type StorageStats struct {
	TotalFiles  int     `json:"total_files"`
	TotalSize   int64   `json:"total_size"`
	TotalSizeMB float64 `json:"total_size_mb"`
}

// Media types reported by the gallery listing.
const (
	MediaImage = "image"
	MediaVideo = "video"
)

type GalleryEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

type SessionInfo struct {
	Token     Session
	Granted   bool
	CreatedAt time.Time
}

type Upload struct {
	ID         string
	Session    Session
	Name       string
	Size       int64
	UploadedAt time.Time
}
