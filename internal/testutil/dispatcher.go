package testutil

import (
	"context"
	"sync"

	"github.com/mcoot/qhunt/internal/model"
)

// RecordingDispatcher records dispatched updates instead of projecting them
type RecordingDispatcher struct {
	mu      sync.Mutex
	updates []model.Update
}

func (d *RecordingDispatcher) Dispatch(_ context.Context, update model.Update) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updates = append(d.updates, update)
}

// Updates returns a copy of everything dispatched so far
func (d *RecordingDispatcher) Updates() []model.Update {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.Update(nil), d.updates...)
}

// Types returns the types of everything dispatched so far, in order
func (d *RecordingDispatcher) Types() []model.UpdateType {
	updates := d.Updates()
	types := make([]model.UpdateType, len(updates))
	for i, u := range updates {
		types[i] = u.Type
	}
	return types
}
