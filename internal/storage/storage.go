package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/phuslu/log"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	"gocloud.dev/gcerrors"
)

// PDFContentType is the content type documents are stored with.
const PDFContentType = "application/pdf"

// ErrCreate is returned when the destination entry cannot be created.
var ErrCreate = errors.New("storage: cannot create destination")

// Store is a save location backed by a gocloud bucket.
type Store struct {
	bucket *blob.Bucket
	url    string
	owned  bool
	logger *log.Logger
}

// Open opens the save location at location. A plain directory path is
// turned into a file:// URL that creates the directory on demand and skips
// the .attrs sidecar files; any other URL is passed to blob.OpenBucket, so
// the caller must have linked the matching driver (s3blob, gcsblob, ...).
func Open(ctx context.Context, location string) (*Store, error) {
	bucketURL, err := BucketURL(location)
	if err != nil {
		return nil, err
	}

	bkt, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", bucketURL, err)
	}

	s := New(bkt)
	s.url = bucketURL
	s.owned = true
	return s, nil
}

// New wraps an already opened bucket. Close does not close bkt.
func New(bkt *blob.Bucket) *Store {
	return &Store{bucket: bkt, logger: &log.DefaultLogger}
}

// WithLogger sets the logger used for debug output.
func (s *Store) WithLogger(l *log.Logger) *Store {
	s.logger = l
	return s
}

// URL is the bucket URL the store was opened with, if any.
func (s *Store) URL() string {
	return s.url
}

// Save writes r to name, replacing any existing entry. It returns the
// number of bytes written. Failures to prepare or create the destination
// wrap ErrCreate.
func (s *Store) Save(ctx context.Context, name, contentType string, r io.Reader) (int64, error) {
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("%w: check %s: %v", ErrCreate, name, err)
	}
	if exists {
		s.logger.Debug().Str("name", name).Msg("replacing existing file")
		if err := s.bucket.Delete(ctx, name); err != nil && !isNotExist(err) {
			return 0, fmt.Errorf("%w: delete %s: %v", ErrCreate, name, err)
		}
	}

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := s.bucket.NewWriter(wctx, name, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrCreate, name, err)
	}

	n, err := io.Copy(w, r)
	if err != nil {
		// Cancelling before Close discards the partial object.
		cancel()
		w.Close()
		return n, fmt.Errorf("storage: write %s: %w", name, err)
	}

	if err := w.Close(); err != nil {
		return n, fmt.Errorf("storage: close %s: %w", name, err)
	}

	s.logger.Debug().Str("name", name).Int64("bytes", n).Msg("saved")
	return n, nil
}

// Exists reports whether name is present.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	return s.bucket.Exists(ctx, name)
}

// Object describes a stored entry.
type Object struct {
	Name string
	Size int64
}

// List returns the entries whose names end in suffix, in key order.
func (s *Store) List(ctx context.Context, suffix string) ([]Object, error) {
	var objs []Object

	it := s.bucket.List(nil)
	for {
		obj, err := it.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		if obj.IsDir || !strings.HasSuffix(strings.ToLower(obj.Key), suffix) {
			continue
		}
		objs = append(objs, Object{Name: obj.Key, Size: obj.Size})
	}

	return objs, nil
}

// ReadAll reads the entry name.
func (s *Store) ReadAll(ctx context.Context, name string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}
	return data, nil
}

// Close closes the bucket if the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.bucket.Close()
}

// BucketURL converts a save location into a gocloud bucket URL.
func BucketURL(location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", errors.New("storage: empty save location")
	}

	if strings.Contains(location, "://") {
		return location, nil
	}

	abs, err := filepath.Abs(location)
	if err != nil {
		return "", fmt.Errorf("storage: resolve %s: %w", location, err)
	}

	path := filepath.ToSlash(abs)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	u := url.URL{
		Scheme:   "file",
		Path:     path,
		RawQuery: "create_dir=true&metadata=skip",
	}
	return u.String(), nil
}

// isNotExist checks if the error indicates the object doesn't exist.
func isNotExist(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}
