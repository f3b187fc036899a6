// Package contacts loads the comma-delimited contact file a run dispatches to.
//
// The format is deliberately naive: the first line is the header, every
// following line is one record, and fields are split on every comma with no
// quoting rules. A file whose rows disagree with the header width is rejected
// as a whole so that ledger partitioning never depends on skipped rows.
package contacts

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ignite/mail-dispatcher/internal/domain"
)

// FileExtension is appended to contact paths that lack it.
const FileExtension = ".csv"

// maxLineBytes bounds a single contact line.
const maxLineBytes = 1 << 20

// NormalizePath appends ".csv" when the path does not already end with it.
func NormalizePath(path string) string {
	if strings.HasSuffix(path, FileExtension) {
		return path
	}
	return path + FileExtension
}

// Load reads and parses the contact file at path.
func Load(path string) (*domain.ContactSheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.MalformedSourceError{Path: path, Reason: "cannot open file", Err: err}
	}
	defer f.Close()

	return Parse(path, f)
}

// Parse reads a contact sheet from r. path is only used in errors.
func Parse(path string, r io.Reader) (*domain.ContactSheet, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, &domain.MalformedSourceError{Path: path, Line: len(lines) + 1, Reason: "line too long", Err: err}
		}
		return nil, &domain.MalformedSourceError{Path: path, Reason: "read failed", Err: err}
	}

	// Trailing blank lines are an editor artifact, not empty records.
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil, &domain.MalformedSourceError{Path: path, Reason: "file is empty"}
	}

	header := strings.Split(strings.TrimPrefix(lines[0], "\ufeff"), ",")
	sheet := &domain.ContactSheet{
		Path:   path,
		Header: header,
		Rows:   make([]domain.ContactRecord, 0, len(lines)-1),
	}

	for i, line := range lines[1:] {
		lineNo := i + 2
		fields := strings.Split(line, ",")
		if len(fields) != len(header) {
			return nil, &domain.MalformedSourceError{
				Path:   path,
				Line:   lineNo,
				Reason: fieldCountReason(len(fields), len(header)),
			}
		}
		sheet.Rows = append(sheet.Rows, domain.ContactRecord{
			Line:   lineNo,
			Fields: fields,
			Header: header,
		})
	}

	return sheet, nil
}

func fieldCountReason(got, want int) string {
	return fmt.Sprintf("row has %d fields, header has %d", got, want)
}
