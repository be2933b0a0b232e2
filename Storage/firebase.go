package Storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"path"

	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// FirebaseStore keeps photos in a Firebase Storage bucket.
type FirebaseStore struct {
	bucket *storage.BucketHandle
	name   string
	prefix string
	public bool
}

// NewFirebaseStore initializes a Firebase app for bucket. opts carry the
// credentials, e.g. option.WithCredentialsFile.
func NewFirebaseStore(ctx context.Context, bucket string, public bool, opts ...option.ClientOption) (*FirebaseStore, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: bucket}, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting storage client: %w", err)
	}
	handle, err := client.Bucket(bucket)
	if err != nil {
		return nil, fmt.Errorf("error opening bucket %s: %w", bucket, err)
	}
	return &FirebaseStore{bucket: handle, name: bucket, prefix: "checklist-photos", public: public}, nil
}

func (f *FirebaseStore) Upload(ctx context.Context, name, contentType string, data []byte) (Object, error) {
	objectName := path.Join(f.prefix, name)
	obj := f.bucket.Object(objectName)

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return Object{}, fmt.Errorf("firebase upload %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return Object{}, fmt.Errorf("firebase upload %s: %w", objectName, err)
	}

	if f.public {
		if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
			log.Printf("[photos] could not share %s: %v", objectName, err)
		}
	}

	direct := fmt.Sprintf("https://storage.googleapis.com/%s/%s", f.name, (&url.URL{Path: objectName}).EscapedPath())
	return Object{ID: objectName, WebViewLink: direct, DirectURL: direct}, nil
}

func (f *FirebaseStore) Open(ctx context.Context, id string) (io.ReadCloser, string, error) {
	r, err := f.bucket.Object(id).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, "", fmt.Errorf("%s: %w", id, ErrPhotoNotFound)
		}
		return nil, "", fmt.Errorf("firebase download %s: %w", id, err)
	}
	contentType := r.Attrs.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return r, contentType, nil
}
