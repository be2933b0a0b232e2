package Storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DriveScope is the OAuth scope the service account needs for uploads.
const DriveScope = drive.DriveScope

// DriveStore keeps photos in one Google Drive folder.
type DriveStore struct {
	srv      *drive.Service
	folderID string
	public   bool
}

// NewDriveStore builds a Drive client. When public is set each upload is
// shared with anyone holding the link.
func NewDriveStore(ctx context.Context, ts oauth2.TokenSource, folderID string, public bool) (*DriveStore, error) {
	srv, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("drive client: %w", err)
	}
	return &DriveStore{srv: srv, folderID: folderID, public: public}, nil
}

func (d *DriveStore) Upload(ctx context.Context, name, contentType string, data []byte) (Object, error) {
	meta := &drive.File{
		Name:     name,
		MimeType: contentType,
		Parents:  []string{d.folderID},
	}
	created, err := d.srv.Files.Create(meta).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		SupportsAllDrives(true).
		Fields("id", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return Object{}, fmt.Errorf("drive upload %s: %w", name, err)
	}

	if d.public {
		perm := &drive.Permission{Type: "anyone", Role: "reader"}
		if _, err := d.srv.Permissions.Create(created.Id, perm).SupportsAllDrives(true).Context(ctx).Do(); err != nil {
			log.Printf("[photos] could not share %s: %v", created.Id, err)
		}
	}

	return Object{
		ID:          created.Id,
		WebViewLink: created.WebViewLink,
		DirectURL:   "https://drive.google.com/uc?export=view&id=" + created.Id,
	}, nil
}

func (d *DriveStore) Open(ctx context.Context, id string) (io.ReadCloser, string, error) {
	resp, err := d.srv.Files.Get(id).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil, "", fmt.Errorf("%s: %w", id, ErrPhotoNotFound)
		}
		return nil, "", fmt.Errorf("drive download %s: %w", id, err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return resp.Body, contentType, nil
}
