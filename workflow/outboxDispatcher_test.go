package workflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	fail bool
	sent []config.AuditMessage
}

func (p *fakePublisher) Publish(_ context.Context, msg config.AuditMessage) (string, error) {
	if p.fail {
		return "", errors.New("pubsub unavailable")
	}
	p.sent = append(p.sent, msg)
	return "msg-1", nil
}

func auditLog(t *testing.T, f *ledgerFixture, entryId int) models.AuditLog {
	t.Helper()
	logs, err := models.ListAuditLogs(f.ctx, f.db, "journal_entry", entryId)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	return logs[0]
}

func TestAuditDispatcherRetriesThenPublishes(t *testing.T) {
	f := newLedgerFixture(t)
	entry, err := f.poster.CreateManualJournal(f.ctx, manualEntry(t, f, "JV-100", 50, 50), true)
	require.NoError(t, err)

	clock := fixedNow
	publisher := &fakePublisher{fail: true}
	d := workflow.NewAuditDispatcher(f.db, quietLogger())
	d.Publisher = publisher
	d.Now = func() time.Time { return clock }

	result, err := d.DispatchOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, workflow.DispatchResult{Failed: 1}, result)

	row := auditLog(t, f, entry.ID)
	assert.Equal(t, models.PublishStatusFailed, row.PublishStatus)
	assert.Equal(t, 1, row.PublishAttempts)
	assert.Equal(t, "pubsub unavailable", row.LastError)
	require.NotNil(t, row.NextAttemptAt)
	assert.True(t, row.NextAttemptAt.Equal(fixedNow.Add(5*time.Second)))

	// not due yet
	publisher.fail = false
	result, err = d.DispatchOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, workflow.DispatchResult{}, result)

	clock = fixedNow.Add(6 * time.Second)
	result, err = d.DispatchOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, workflow.DispatchResult{Published: 1}, result)
	require.Len(t, publisher.sent, 1)
	assert.Equal(t, "POST", publisher.sent[0].Action)
	assert.Equal(t, entry.ID, publisher.sent[0].EntityId)
	assert.Equal(t, "JV-100", publisher.sent[0].Description)

	row = auditLog(t, f, entry.ID)
	assert.Equal(t, models.PublishStatusPublished, row.PublishStatus)
	assert.Equal(t, 2, row.PublishAttempts)
	assert.Empty(t, row.LastError)
	assert.NotNil(t, row.PublishedAt)

	result, err = d.DispatchOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, workflow.DispatchResult{}, result, "published rows are not sent twice")
}

func TestAuditDispatcherParksDeadRows(t *testing.T) {
	f := newLedgerFixture(t)
	entry, err := f.poster.CreateManualJournal(f.ctx, manualEntry(t, f, "JV-200", 50, 50), true)
	require.NoError(t, err)

	clock := fixedNow
	d := workflow.NewAuditDispatcher(f.db, quietLogger())
	d.Publisher = &fakePublisher{fail: true}
	d.MaxAttempts = 2
	d.Now = func() time.Time { return clock }

	result, err := d.DispatchOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	clock = clock.Add(time.Minute)
	result, err = d.DispatchOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, workflow.DispatchResult{Dead: 1}, result)

	row := auditLog(t, f, entry.ID)
	assert.Equal(t, models.PublishStatusDead, row.PublishStatus)
	assert.Equal(t, 2, row.PublishAttempts)
	assert.Nil(t, row.NextAttemptAt)

	clock = clock.Add(time.Hour)
	result, err = d.DispatchOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, workflow.DispatchResult{}, result)
}

func TestAuditDispatcherRunStopsOnCancel(t *testing.T) {
	f := newLedgerFixture(t)
	d := workflow.NewAuditDispatcher(f.db, quietLogger())
	d.Publisher = &fakePublisher{}
	d.PollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(f.ctx, 50*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
