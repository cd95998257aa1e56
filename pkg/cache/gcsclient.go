package cache

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
)

// GCSClient is the part of *storage.Client that GCSCache touches. Tests
// substitute an in-memory bucket.
type GCSClient interface {
	Bucket(name string) GCSBucketHandle
}

// GCSBucketHandle resolves object names inside one bucket.
type GCSBucketHandle interface {
	Object(name string) GCSObjectHandle
}

// GCSObjectHandle reads and writes a single object.
//
// NewReader reports a missing object with an error wrapping
// storage.ErrObjectNotExist. The writer returned by NewWriter commits the
// object on a successful Close; cancelling ctx before Close discards it.
type GCSObjectHandle interface {
	NewReader(ctx context.Context) (io.ReadCloser, error)
	NewWriter(ctx context.Context) io.WriteCloser
}

// NewGCSClientAdapter exposes a *storage.Client as a GCSClient. A nil client
// yields a nil GCSClient so NewGCSCache rejects it.
func NewGCSClientAdapter(client *storage.Client) GCSClient {
	if client == nil {
		return nil
	}
	return storageClient{client: client}
}

// storageClient, storageBucket and storageObject forward to the real handles.
// They are values: each handle is itself a cheap, immutable reference.
type storageClient struct{ client *storage.Client }

type storageBucket struct{ bucket *storage.BucketHandle }

type storageObject struct{ object *storage.ObjectHandle }

func (c storageClient) Bucket(name string) GCSBucketHandle {
	return storageBucket{bucket: c.client.Bucket(name)}
}

func (b storageBucket) Object(name string) GCSObjectHandle {
	return storageObject{object: b.bucket.Object(name)}
}

func (o storageObject) NewReader(ctx context.Context) (io.ReadCloser, error) {
	return o.object.NewReader(ctx)
}

// NewWriter hands back the *storage.Writer itself.
func (o storageObject) NewWriter(ctx context.Context) io.WriteCloser {
	return o.object.NewWriter(ctx)
}
