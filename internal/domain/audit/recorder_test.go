package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"magasin/internal/core/id"
	"magasin/internal/core/tx"
)

type fakeRecorder struct {
	events []Event
	err    error
}

func (f *fakeRecorder) Record(_ context.Context, ev Event) error {
	f.events = append(f.events, ev)
	return f.err
}

func TestRecordAfterCommit_WaitsForCommit(t *testing.T) {
	rec := &fakeRecorder{}
	ctx, hooks := tx.WithHooks(context.Background())

	RecordAfterCommit(ctx, rec, Event{EntityType: "sale", EntityID: id.New(), Action: ActionCreate})
	assert.Empty(t, rec.events)

	hooks.Run(context.Background())
	assert.Len(t, rec.events, 1)
}

func TestRecordAfterCommit_FailureIsSwallowed(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	assert.NotPanics(t, func() {
		RecordAfterCommit(context.Background(), rec, Event{EntityType: "sale", Action: ActionCancel})
	})
	assert.Len(t, rec.events, 1)

	RecordAfterCommit(context.Background(), nil, Event{})
}
