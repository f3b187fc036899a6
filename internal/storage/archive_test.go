package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string]string
	bucket  string
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.objects[aws.ToString(in.Key)] = string(data)
	return &s3.PutObjectOutput{}, nil
}

func TestLedgerArchiveUpload(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "output-s.csv")
	b := filepath.Join(dir, "output-intro.csv")
	require.NoError(t, os.WriteFile(a, []byte("name,email\nAlice,a@x.com"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("name,email"), 0644))

	client := &fakeS3{objects: map[string]string{}}
	archive := NewLedgerArchive(client, "ledgers", "/dispatch/")

	keys, err := archive.Upload(context.Background(), "run-1", []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, []string{"dispatch/run-1/output-s.csv", "dispatch/run-1/output-intro.csv"}, keys)
	assert.Equal(t, "ledgers", client.bucket)
	assert.Equal(t, "name,email\nAlice,a@x.com", client.objects["dispatch/run-1/output-s.csv"])
}

func TestLedgerArchiveErrors(t *testing.T) {
	archive := NewLedgerArchive(&fakeS3{objects: map[string]string{}}, "ledgers", "")
	_, err := archive.Upload(context.Background(), "run-1", []string{"/nonexistent/output-s.csv"})
	assert.Error(t, err)

	dir := t.TempDir()
	p := filepath.Join(dir, "output-s.csv")
	require.NoError(t, os.WriteFile(p, []byte("name,email"), 0644))
	failing := NewLedgerArchive(&fakeS3{err: errors.New("AccessDenied")}, "ledgers", "")
	keys, err := failing.Upload(context.Background(), "run-1", []string{p})
	assert.ErrorContains(t, err, "AccessDenied")
	assert.Empty(t, keys)
	assert.Equal(t, "run-1/output-s.csv", failing.Key("run-1", p))
}
