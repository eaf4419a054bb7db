package source

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/garyellow/chatai/internal/r2client"
)

// Open returns the Source for a location:
//
//	chat_data.csv, ./data/chat.csv.gz, file:///srv/chat.csv.zst  CSV file
//	s3://bucket/key.csv[.gz|.zst]                               CSV object via S3/R2
//	sqlite:///srv/chat.db?table=chat_data                       SQLite table
//
// Nothing is read until Scan, except that s3:// builds its client here.
func Open(ctx context.Context, location string, opts Options) (Source, error) {
	scheme, _, hasScheme := strings.Cut(location, "://")
	if !hasScheme {
		return NewFile(location, opts)
	}

	switch strings.ToLower(scheme) {
	case "file":
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("source: parse %q: %w", location, err)
		}
		return NewFile(u.Host+u.Path, opts)
	case "s3":
		return NewS3(ctx, location, opts)
	case "sqlite":
		return NewSQLite(location)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}

// NewFile returns a Source reading a CSV file from disk.
func NewFile(path string, opts Options) (Source, error) {
	return newCSVSource(path, path, func(context.Context) (io.ReadCloser, error) {
		return os.Open(path)
	}, opts)
}

// NewS3 returns a Source reading a CSV object from S3-compatible storage.
func NewS3(ctx context.Context, location string, opts Options) (Source, error) {
	bucket, key, err := r2client.ParseURL(location)
	if err != nil {
		return nil, err
	}
	client, err := r2client.New(ctx, opts.S3)
	if err != nil {
		return nil, err
	}
	return newCSVSource(location, key, func(ctx context.Context) (io.ReadCloser, error) {
		body, _, err := client.Download(ctx, bucket, key)
		return body, err
	}, opts)
}
