package progress

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/mail-dispatcher/internal/domain"
)

func TestBar(t *testing.T) {
	half := Bar(Advance(2, 4))
	assert.True(t, strings.HasPrefix(half, "["+strings.Repeat("█", 25)+strings.Repeat(" ", 25)+"]"), half)
	assert.True(t, strings.HasSuffix(half, "] 2 out of 4"))

	empty := Bar(Advance(0, 0))
	assert.Equal(t, "["+strings.Repeat("█", BarWidth)+"] 0 out of 0", empty)
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	ctx := context.Background()

	require.NoError(t, c.Start(ctx, "run-1", 2))
	require.NoError(t, c.Report(ctx, Event{Snapshot: Advance(1, 2), Recipient: "a@x.com", Sender: "s@y.com"}))
	require.NoError(t, c.Report(ctx, Event{Snapshot: Advance(2, 2), Recipient: "b@x.com", Sender: "s@y.com", Failed: true}))
	require.NoError(t, c.Finish(ctx, &domain.RunSummary{
		State:     domain.RunDone,
		Processed: 2,
		Total:     2,
		Failures:  []domain.DeliveryFailure{{Line: 3, Recipient: "b@x.com", Error: "550 rejected"}},
	}))

	out := buf.String()
	assert.Contains(t, out, "0 out of 2")
	assert.Contains(t, out, "Sent to -> a@x.com via s@y.com")
	assert.Contains(t, out, "FAILED sending to -> b@x.com via s@y.com")
	assert.Contains(t, out, "All 2 emails sent!")
	assert.Contains(t, out, "1 deliveries failed")
	assert.Contains(t, out, "line 3 b@x.com: 550 rejected")
}

func TestConsoleFinishFailedRun(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewConsole(&buf).Finish(context.Background(), &domain.RunSummary{
		State: domain.RunFailed, Processed: 1, Total: 3, Error: "context canceled",
	}))
	assert.Equal(t, "   Run failed after 1 of 3 contacts: context canceled\n", buf.String())
}
