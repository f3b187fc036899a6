package segregation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/mail-dispatcher/internal/domain"
)

var testHeader = []string{"name", "email"}

func testConfig(dir string) *domain.Configuration {
	return &domain.Configuration{
		SenderIdentities: []string{"sales@y.com", "support@y.com"},
		Templates: []domain.Template{
			{Subject: "A", BodySource: "writeups/intro.txt"},
			{Subject: "B", BodySource: "followup.v2.txt"},
		},
		Placeholders:        []domain.PlaceholderMapping{{Name: "email", ColumnTitle: "email"}},
		SegregateByTemplate: true,
		SegregateBySender:   true,
		OutputDirectory:     dir,
	}
}

func attempt(line string, templateIdx, senderIdx int) *domain.DispatchAttempt {
	rec := domain.ContactRecord{Fields: strings.Split(line, ","), Header: testHeader}
	return &domain.DispatchAttempt{Contact: rec, TemplateIndex: templateIdx, SenderIndex: senderIdx}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "intro", TemplateKey("writeups/intro.txt"))
	assert.Equal(t, "followup", TemplateKey("followup.v2.txt"))
	assert.Equal(t, "plain", TemplateKey("plain"))
	assert.Equal(t, "s", SenderKey("s@y.com"))
	assert.Equal(t, "nodomain", SenderKey("nodomain"))
	assert.Equal(t, "output-s.csv", FileName("s"))
}

func TestOpenWritesHeadersForEveryPartition(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	seg, err := Open(testConfig(dir), testHeader)
	require.NoError(t, err)
	require.NoError(t, seg.Close())

	for _, name := range []string{"output-intro.csv", "output-followup.csv", "output-sales.csv", "output-support.csv"} {
		assert.Equal(t, "name,email", readFile(t, filepath.Join(dir, name)), name)
	}
	assert.Len(t, seg.Paths(), 4)
}

func TestOpenTruncatesExistingLedgers(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "output-sales.csv")
	require.NoError(t, os.WriteFile(stale, []byte("old,data\nx,y"), 0644))

	cfg := testConfig(dir)
	cfg.SegregateByTemplate = false
	seg, err := Open(cfg, testHeader)
	require.NoError(t, err)
	require.NoError(t, seg.Close())

	assert.Equal(t, "name,email", readFile(t, stale))
}

func TestRecordRoutesByTemplateAndSender(t *testing.T) {
	dir := t.TempDir()
	seg, err := Open(testConfig(dir), testHeader)
	require.NoError(t, err)

	require.NoError(t, seg.Record(attempt("Alice,a@x.com", 0, 1)))
	require.NoError(t, seg.Record(attempt("Bob,b@x.com", 1, 1)))
	require.NoError(t, seg.Record(attempt("Carol,c@x.com", 0, 0)))
	require.NoError(t, seg.Close())

	assert.Equal(t, "name,email\nAlice,a@x.com\nCarol,c@x.com", readFile(t, filepath.Join(dir, "output-intro.csv")))
	assert.Equal(t, "name,email\nBob,b@x.com", readFile(t, filepath.Join(dir, "output-followup.csv")))
	assert.Equal(t, "name,email\nCarol,c@x.com", readFile(t, filepath.Join(dir, "output-sales.csv")))
	assert.Equal(t, "name,email\nAlice,a@x.com\nBob,b@x.com", readFile(t, filepath.Join(dir, "output-support.csv")))
}

func TestSenderOnlyScenario(t *testing.T) {
	dir := t.TempDir()
	cfg := &domain.Configuration{
		SenderIdentities:  []string{"s@y.com"},
		Templates:         []domain.Template{{Subject: "Hi", BodySource: "hi.txt"}},
		SegregateBySender: true,
		OutputDirectory:   dir,
	}
	seg, err := Open(cfg, testHeader)
	require.NoError(t, err)
	require.NoError(t, seg.Record(attempt("Alice,a@x.com", 0, 0)))
	require.NoError(t, seg.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "output-s.csv", entries[0].Name())
	assert.Equal(t, "name,email\nAlice,a@x.com", readFile(t, filepath.Join(dir, "output-s.csv")))
}

func TestNoSegregationCreatesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never")
	cfg := testConfig(dir)
	cfg.SegregateByTemplate = false
	cfg.SegregateBySender = false

	seg, err := Open(cfg, testHeader)
	require.NoError(t, err)
	require.NoError(t, seg.Record(attempt("Alice,a@x.com", 0, 0)))
	require.NoError(t, seg.Close())

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, seg.Paths())
}

func TestSharedFileIsWrittenOncePerAttempt(t *testing.T) {
	dir := t.TempDir()
	cfg := &domain.Configuration{
		SenderIdentities:    []string{"news@a.com", "news@b.com"},
		Templates:           []domain.Template{{BodySource: "news.txt"}},
		SegregateByTemplate: true,
		SegregateBySender:   true,
		OutputDirectory:     dir,
	}
	seg, err := Open(cfg, testHeader)
	require.NoError(t, err)
	assert.Len(t, seg.Paths(), 1)

	require.NoError(t, seg.Record(attempt("Alice,a@x.com", 0, 1)))
	require.NoError(t, seg.Close())

	assert.Equal(t, "name,email\nAlice,a@x.com", readFile(t, filepath.Join(dir, "output-news.csv")))
}

func TestOpenFailsOnEmptyKeyAndClosesOpenedLedgers(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.SenderIdentities = []string{"ok@y.com", "@nolocal.com"}

	seg, err := Open(cfg, testHeader)
	assert.Nil(t, seg)

	var pErr *domain.PartitionIOError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, "open", pErr.Op)

	// Ledgers opened before the failure still exist with their header.
	assert.Equal(t, "name,email", readFile(t, filepath.Join(dir, "output-ok.csv")))
}

func TestOpenFailsWhenDirectoryIsAFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "taken")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	_, err := Open(testConfig(file), testHeader)
	var pErr *domain.PartitionIOError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, "open", pErr.Op)
}

func TestRecordReportsAppendFailureAndKeepsWritingOthers(t *testing.T) {
	dir := t.TempDir()
	seg, err := Open(testConfig(dir), testHeader)
	require.NoError(t, err)

	// Break the template ledger underneath the segregator.
	require.NoError(t, seg.byTemplate[0].file.Close())

	err = seg.Record(attempt("Alice,a@x.com", 0, 0))
	var pErr *domain.PartitionIOError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, "append", pErr.Op)
	assert.Equal(t, filepath.Join(dir, "output-intro.csv"), pErr.Path)

	_ = seg.Close()
	assert.Equal(t, "name,email\nAlice,a@x.com", readFile(t, filepath.Join(dir, "output-sales.csv")))
}

func TestCloseIsIdempotentAndBlocksRecord(t *testing.T) {
	seg, err := Open(testConfig(t.TempDir()), testHeader)
	require.NoError(t, err)

	require.NoError(t, seg.Close())
	require.NoError(t, seg.Close())

	var pErr *domain.PartitionIOError
	assert.True(t, errors.As(seg.Record(attempt("A,a@x.com", 0, 0)), &pErr))
}
