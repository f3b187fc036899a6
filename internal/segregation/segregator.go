// Package segregation writes the per-template and per-sender output ledgers
// of a dispatch run.
//
// A ledger is a comma-delimited file named output-<key>.csv that starts with
// the contact header and gains one raw contact line per attempt routed to
// its partition. Lines are written as "\n"+record, so a ledger never ends
// with a newline; that layout matches files produced by earlier versions of
// the tool.
package segregation

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ignite/mail-dispatcher/internal/domain"
)

const (
	filePrefix = "output-"
	fileSuffix = ".csv"
)

// TemplateKey derives the partition key of a template: the base name of its
// body source up to the first ".".
func TemplateKey(bodySource string) string {
	base := filepath.Base(filepath.ToSlash(bodySource))
	key, _, _ := strings.Cut(base, ".")
	return key
}

// SenderKey derives the partition key of a sender: its local part.
func SenderKey(sender string) string {
	key, _, _ := strings.Cut(sender, "@")
	return key
}

// FileName returns the ledger file name for a key.
func FileName(key string) string {
	return filePrefix + key + fileSuffix
}

type ledger struct {
	path string
	file *os.File
	w    *bufio.Writer
}

func (l *ledger) append(line string) error {
	if _, err := l.w.WriteString("\n" + line); err != nil {
		return err
	}
	// Flush per record so an interrupted run keeps what it already wrote.
	return l.w.Flush()
}

func (l *ledger) close() error {
	flushErr := l.w.Flush()
	closeErr := l.file.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// Segregator owns every open ledger of one run.
type Segregator struct {
	ledgers    []*ledger
	byTemplate []*ledger // indexed by template, nil when not segregating
	bySender   []*ledger // indexed by sender, nil when not segregating
	closed     bool
}

// Open creates the output directory and one headered ledger per active
// partition, even for partitions that will never receive a contact.
// Partitions that map to the same file name share a single ledger. When any
// file cannot be created the ones already opened are closed again.
func Open(cfg *domain.Configuration, header []string) (*Segregator, error) {
	s := &Segregator{}
	if !cfg.SegregateByTemplate && !cfg.SegregateBySender {
		return s, nil
	}

	if err := os.MkdirAll(cfg.OutputDirectory, 0755); err != nil {
		return nil, &domain.PartitionIOError{Op: "open", Path: cfg.OutputDirectory, Err: err}
	}

	headerLine := strings.Join(header, ",")
	byPath := make(map[string]*ledger)

	openKey := func(key, owner string) (*ledger, error) {
		if key == "" {
			return nil, &domain.PartitionIOError{
				Op:   "open",
				Path: cfg.OutputDirectory,
				Err:  fmt.Errorf("empty partition key for %q", owner),
			}
		}
		path := filepath.Join(cfg.OutputDirectory, FileName(key))
		if l, ok := byPath[path]; ok {
			return l, nil
		}
		l, err := createLedger(path, headerLine)
		if err != nil {
			return nil, err
		}
		byPath[path] = l
		s.ledgers = append(s.ledgers, l)
		return l, nil
	}

	if cfg.SegregateByTemplate {
		s.byTemplate = make([]*ledger, len(cfg.Templates))
		for i, t := range cfg.Templates {
			l, err := openKey(TemplateKey(t.BodySource), t.BodySource)
			if err != nil {
				s.Close()
				return nil, err
			}
			s.byTemplate[i] = l
		}
	}
	if cfg.SegregateBySender {
		s.bySender = make([]*ledger, len(cfg.SenderIdentities))
		for i, sender := range cfg.SenderIdentities {
			l, err := openKey(SenderKey(sender), sender)
			if err != nil {
				s.Close()
				return nil, err
			}
			s.bySender[i] = l
		}
	}
	return s, nil
}

func createLedger(path, headerLine string) (*ledger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, &domain.PartitionIOError{Op: "open", Path: path, Err: err}
	}
	l := &ledger{path: path, file: f, w: bufio.NewWriter(f)}
	_, err = l.w.WriteString(headerLine)
	if err == nil {
		err = l.w.Flush()
	}
	if err != nil {
		f.Close()
		return nil, &domain.PartitionIOError{Op: "open", Path: path, Err: err}
	}
	return l, nil
}

// Record appends the attempt's raw contact line to its template ledger and
// its sender ledger. A file shared by both partitions gets the line once.
// Every failed append is reported; the remaining ledgers are still written.
func (s *Segregator) Record(attempt *domain.DispatchAttempt) error {
	if s.closed {
		return &domain.PartitionIOError{Op: "append", Err: errors.New("segregator is closed")}
	}

	var targets []*ledger
	if s.byTemplate != nil {
		if l := pick(s.byTemplate, attempt.TemplateIndex); l != nil {
			targets = append(targets, l)
		}
	}
	if s.bySender != nil {
		if l := pick(s.bySender, attempt.SenderIndex); l != nil && (len(targets) == 0 || targets[0] != l) {
			targets = append(targets, l)
		}
	}

	line := attempt.Contact.Raw()
	var errs []error
	for _, l := range targets {
		if err := l.append(line); err != nil {
			errs = append(errs, &domain.PartitionIOError{Op: "append", Path: l.path, Err: err})
		}
	}
	return errors.Join(errs...)
}

func pick(ledgers []*ledger, i int) *ledger {
	if i < 0 || i >= len(ledgers) {
		return nil
	}
	return ledgers[i]
}

// Paths lists the ledger files in the order they were opened.
func (s *Segregator) Paths() []string {
	paths := make([]string, len(s.ledgers))
	for i, l := range s.ledgers {
		paths[i] = l.path
	}
	return paths
}

// Close flushes and closes every ledger. Calling it again is a no-op.
func (s *Segregator) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for _, l := range s.ledgers {
		if err := l.close(); err != nil {
			errs = append(errs, &domain.PartitionIOError{Op: "close", Path: l.path, Err: err})
		}
	}
	return errors.Join(errs...)
}
