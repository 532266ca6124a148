package filestorage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BlobStore stores GPX files and hands back public URLs
type BlobStore interface {
	// Put stores r under key and returns the public URL of the object
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)

	// Delete removes the object; deleting a missing object is not an error
	Delete(ctx context.Context, key string) error

	// KeyFromURL recovers the object key from a URL returned by Put
	KeyFromURL(url string) (string, bool)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey builds "{userID}/{unix-ms}-{filename}" with the filename reduced to safe characters.
func ObjectKey(userID uuid.UUID, filename string, now time.Time) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "track.gpx"
	}
	return fmt.Sprintf("%s/%d-%s", userID, now.UnixMilli(), name)
}

// keyFromURL extracts the part of rawURL after "/{bucket}/".
func keyFromURL(rawURL, bucket string) (string, bool) {
	re := regexp.MustCompile("/" + regexp.QuoteMeta(bucket) + "/(.+)$")
	m := re.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	key := m[1]
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	if err := validateKey(key); err != nil {
		return "", false
	}
	return key, true
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("invalid object key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return fmt.Errorf("invalid object key %q", key)
		}
	}
	return nil
}
