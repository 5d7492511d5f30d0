package factory

import (
	"context"
	"time"

	"github.com/mcoot/qhunt/internal/config"
	"github.com/mcoot/qhunt/internal/dependencies/mocks"
	"github.com/mcoot/qhunt/internal/model"
	"github.com/mcoot/qhunt/internal/services/event"
	"github.com/mcoot/qhunt/internal/storage/memory"
	"github.com/mcoot/qhunt/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an in-memory App with mocked clock and randomness
// and inline projection, so reads observe every write immediately.
func NewTestApp() *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app, err := newWithDependencies(
		memory.New(),
		memory.NewRealtime(),
		mockClock,
		mockRandom,
		Config{ProjectorMode: config.ProjectorInline},
		testutil.NopLogger(),
	)
	if err != nil {
		panic(err)
	}

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// CreateEvent creates an event with the given rules, failing loudly on error
func (t *TestApp) CreateEvent(ctx context.Context, id string, rules model.GameRules) *model.Event {
	ev, err := t.EventController.CreateEvent(ctx, event.CreateInput{
		ID:    model.EventID(id),
		Title: "Test Hunt " + id,
		Rules: rules,
	})
	if err != nil {
		panic(err)
	}
	return ev
}
