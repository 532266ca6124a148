package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string // root directory; objects live under basePath/bucket
	baseURL  string // URL prefix under which basePath is served
	bucket   string
	logger   zerolog.Logger
}

// NewLocalStorage creates a new LocalStorage instance and ensures the bucket directory exists.
func NewLocalStorage(basePath, baseURL, bucket string, logger zerolog.Logger) (*LocalStorage, error) {
	dir := filepath.Join(basePath, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error().Err(err).Str("path", dir).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	logger.Info().Str("path", dir).Msg("Local storage directory ensured")

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		bucket:   bucket,
		logger:   logger,
	}, nil
}

// BasePath is the directory to expose as static files.
func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// Put writes r to basePath/bucket/key.
func (ls *LocalStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dstPath := ls.objectPath(key)
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		ls.logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create subdirectory")
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		ls.logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, r)
	if err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to save file content: %w", err)
	}
	if size >= 0 && written != size {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("short write: got %d of %d bytes", written, size)
	}

	url := ls.baseURL + "/" + ls.bucket + "/" + key
	ls.logger.Info().Str("key", key).Int64("bytes", written).Msg("File saved")
	return url, nil
}

// Delete removes the object. A missing file counts as deleted.
func (ls *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	physicalPath := ls.objectPath(key)
	if err := os.Remove(physicalPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			ls.logger.Warn().Str("path", physicalPath).Msg("File to delete does not exist")
			return nil
		}
		ls.logger.Error().Err(err).Str("path", physicalPath).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}

	ls.logger.Info().Str("key", key).Msg("File deleted")
	return nil
}

// KeyFromURL returns the key of a URL produced by Put.
func (ls *LocalStorage) KeyFromURL(url string) (string, bool) {
	return keyFromURL(url, ls.bucket)
}

func (ls *LocalStorage) objectPath(key string) string {
	return filepath.Join(ls.basePath, ls.bucket, filepath.FromSlash(key))
}
