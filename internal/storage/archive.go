package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used by the archive.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// LedgerArchive uploads a finished run's ledger files to S3 under
// <prefix>/<run id>/<file name>.
type LedgerArchive struct {
	s3     S3API
	bucket string
	prefix string
}

func NewLedgerArchive(client S3API, bucket, prefix string) *LedgerArchive {
	return &LedgerArchive{s3: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// NewLedgerArchiveFromConfig builds the S3 client for a region.
func NewLedgerArchiveFromConfig(ctx context.Context, bucket, prefix, region string) (*LedgerArchive, error) {
	cfg, err := LoadAWSConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return NewLedgerArchive(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// Key returns the object key of a ledger file.
func (a *LedgerArchive) Key(runID, ledgerPath string) string {
	return path.Join(a.prefix, runID, filepath.Base(ledgerPath))
}

// Upload stores every ledger and returns the object keys written.
func (a *LedgerArchive) Upload(ctx context.Context, runID string, ledgers []string) ([]string, error) {
	keys := make([]string, 0, len(ledgers))
	for _, p := range ledgers {
		key := a.Key(runID, p)
		if err := a.put(ctx, key, p); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (a *LedgerArchive) put(ctx context.Context, key, p string) error {
	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	_, err = a.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("putting %s to S3: %w", key, err)
	}
	return nil
}
