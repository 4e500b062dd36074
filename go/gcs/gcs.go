// Package gcs provides a narrow interface for interacting with Google Cloud
// Storage. Introducing the interface allows for easier mocking in unit tests.
// The bucket name is given at creation time to simplify the method signatures.
package gcs

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"

	"go.yoptima.org/infra/go/skerr"
	"go.yoptima.org/infra/go/util"
)

// GCSClient is the subset of Cloud Storage operations this repo needs.
type GCSClient interface {
	// FileWriter returns an io.WriteCloser that writes to the GCS object at
	// path. A new object is created if it doesn't exist, otherwise the
	// existing object is overwritten. The caller must Close the writer to
	// flush the writes.
	FileWriter(ctx context.Context, path string, opts FileWriteOptions) io.WriteCloser

	// SetFileContents writes contents to the GCS object at path.
	SetFileContents(ctx context.Context, path string, opts FileWriteOptions, contents []byte) error

	// UploadFile copies the local file at srcPath to the GCS object at path.
	UploadFile(ctx context.Context, srcPath, path string, opts FileWriteOptions) error

	// DoesFileExist returns true if the object at path exists.
	DoesFileExist(ctx context.Context, path string) (bool, error)

	// Bucket returns the bucket name of this client.
	Bucket() string

	// URL returns the gs:// URI of the object at path.
	URL(path string) string
}

// FileWriteOptions represents the metadata for a GCS object. See
// storage.ObjectAttrs for a more detailed description.
type FileWriteOptions struct {
	ContentEncoding string
	ContentType     string
	Metadata        map[string]string
}

// FileWriteOptsCSV is used for the CSV evidence files this repo uploads.
var FileWriteOptsCSV = FileWriteOptions{ContentType: "text/csv"}

// gcsclient holds the information needed to talk to Cloud Storage.
type gcsclient struct {
	client *storage.Client
	bucket string
}

// NewGCSClient returns a GCSClient backed by the given storage client.
func NewGCSClient(s *storage.Client, bucket string) GCSClient {
	return &gcsclient{
		client: s,
		bucket: bucket,
	}
}

// FileWriter implements GCSClient.
func (g *gcsclient) FileWriter(ctx context.Context, path string, opts FileWriteOptions) io.WriteCloser {
	w := g.client.Bucket(g.bucket).Object(path).NewWriter(ctx)
	w.ObjectAttrs.ContentEncoding = opts.ContentEncoding
	w.ObjectAttrs.ContentType = opts.ContentType
	w.ObjectAttrs.Metadata = opts.Metadata
	return w
}

// SetFileContents implements GCSClient.
func (g *gcsclient) SetFileContents(ctx context.Context, path string, opts FileWriteOptions, contents []byte) error {
	w := g.FileWriter(ctx, path, opts)
	if _, err := w.Write(contents); err != nil {
		_ = w.Close()
		return skerr.Wrapf(err, "writing %d bytes to gs://%s/%s", len(contents), g.bucket, path)
	}
	return skerr.Wrap(w.Close())
}

// UploadFile implements GCSClient.
func (g *gcsclient) UploadFile(ctx context.Context, srcPath, path string, opts FileWriteOptions) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return skerr.Wrapf(err, "opening %s for upload", srcPath)
	}
	defer util.Close(f)
	w := g.FileWriter(ctx, path, opts)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return skerr.Wrapf(err, "uploading %s to gs://%s/%s", srcPath, g.bucket, path)
	}
	return skerr.Wrap(w.Close())
}

// DoesFileExist implements GCSClient.
func (g *gcsclient) DoesFileExist(ctx context.Context, path string) (bool, error) {
	if _, err := g.client.Bucket(g.bucket).Object(path).Attrs(ctx); err != nil {
		if err == storage.ErrObjectNotExist {
			return false, nil
		}
		return false, skerr.Wrap(err)
	}
	return true, nil
}

// Bucket implements GCSClient.
func (g *gcsclient) Bucket() string {
	return g.bucket
}

// URL implements GCSClient.
func (g *gcsclient) URL(path string) string {
	return fmt.Sprintf("gs://%s/%s", g.bucket, path)
}
