package Storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"regexp"
	"strings"
)

// ErrPhotoNotFound is returned when a stored photo id does not resolve.
var ErrPhotoNotFound = errors.New("photo not found")

// Object describes a stored photo.
type Object struct {
	ID          string `json:"fileId"`
	WebViewLink string `json:"webViewLink,omitempty"`
	DirectURL   string `json:"directUrl,omitempty"`
}

// PhotoStore is the file-storage collaborator for checklist photos.
type PhotoStore interface {
	Upload(ctx context.Context, name, contentType string, data []byte) (Object, error)
	Open(ctx context.Context, id string) (io.ReadCloser, string, error)
}

// Reference modes decide which shape of photo reference is handed back to
// the client and later stored in checklist fields.
const (
	ModeProxy  = "proxy"
	ModeDirect = "direct"
	ModeLink   = "link"
)

// ProxyPath is the image proxy route.
const ProxyPath = "/api/getImage"

// Reference renders obj in the given mode.
func Reference(mode string, obj Object) string {
	switch mode {
	case ModeDirect:
		if obj.DirectURL != "" {
			return obj.DirectURL
		}
	case ModeLink:
		if obj.WebViewLink != "" {
			return obj.WebViewLink
		}
		if obj.DirectURL != "" {
			return obj.DirectURL
		}
	}
	return ProxyPath + "?fileId=" + url.QueryEscape(obj.ID)
}

// Ref is a parsed photo reference: either a stored file id or a remote URL.
type Ref struct {
	FileID string
	URL    string
}

var driveFilePath = regexp.MustCompile(`/file/d/([^/]+)`)

// ParseReference accepts every reference shape the app has produced: proxy
// paths, Drive view and download links, plain URLs and bare file ids.
func ParseReference(ref string) Ref {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Ref{}
	}
	u, err := url.Parse(ref)
	if err != nil {
		return Ref{}
	}
	if id := u.Query().Get("fileId"); id != "" {
		return Ref{FileID: id}
	}
	if strings.HasSuffix(u.Host, "drive.google.com") {
		if id := u.Query().Get("id"); id != "" {
			return Ref{FileID: id}
		}
		if m := driveFilePath.FindStringSubmatch(u.Path); m != nil {
			return Ref{FileID: m[1]}
		}
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return Ref{URL: ref}
	}
	if u.Scheme == "" && !strings.ContainsAny(ref, "/?") {
		return Ref{FileID: ref}
	}
	return Ref{}
}
