package progress

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ignite/mail-dispatcher/internal/domain"
)

// BarWidth is the number of cells in the console progress bar.
const BarWidth = 50

// Console prints a text progress bar, one line per contact.
type Console struct {
	w io.Writer
}

// NewConsole creates a console sink writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Bar renders the bar line for a snapshot: "[████    ] 3 out of 8".
func Bar(s domain.ProgressSnapshot) string {
	filled := int(math.Round(BarWidth * s.Ratio))
	if filled > BarWidth {
		filled = BarWidth
	}
	if filled < 0 {
		filled = 0
	}
	return fmt.Sprintf("[%s%s] %d out of %d",
		strings.Repeat("█", filled), strings.Repeat(" ", BarWidth-filled), s.Processed, s.Total)
}

func (c *Console) Start(_ context.Context, _ string, total int) error {
	_, err := fmt.Fprintf(c.w, "   %s\n", Bar(Advance(0, total)))
	return err
}

func (c *Console) Report(_ context.Context, ev Event) error {
	status := "Sent to"
	if ev.Failed {
		status = "FAILED sending to"
	}
	_, err := fmt.Fprintf(c.w, "   %s\n   %s -> %s via %s\n", Bar(ev.Snapshot), status, ev.Recipient, ev.Sender)
	return err
}

func (c *Console) Finish(_ context.Context, summary *domain.RunSummary) error {
	if summary.State != domain.RunDone {
		_, err := fmt.Fprintf(c.w, "   Run %s after %d of %d contacts: %s\n",
			summary.State, summary.Processed, summary.Total, summary.Error)
		return err
	}
	if _, err := fmt.Fprintf(c.w, "   All %d emails sent!\n", summary.Processed); err != nil {
		return err
	}
	if n := summary.Failed(); n > 0 {
		if _, err := fmt.Fprintf(c.w, "   %d deliveries failed:\n", n); err != nil {
			return err
		}
		for _, f := range summary.Failures {
			if _, err := fmt.Fprintf(c.w, "     line %d %s: %s\n", f.Line, f.Recipient, f.Error); err != nil {
				return err
			}
		}
	}
	return nil
}
