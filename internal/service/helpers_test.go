package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"uboard/internal/models"
	"uboard/internal/repository"
	"uboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// assertCode asserts that err is an AppError with the given code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeUnauthorized)
}

func assertNotFoundError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeNotFound)
}

type publishedEvent struct {
	name    string
	payload map[string]interface{}
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event string, payload map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{name: event, payload: payload})
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.name)
	}
	return out
}

// fileManagerStub is a stub for FileManager.
type fileManagerStub struct {
	enabled bool
	url     string
	err     error
	calls   int
	removed []string
}

func (f *fileManagerStub) Status() bool { return f.enabled }

func (f *fileManagerStub) Upload(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.url, f.err
}

func (f *fileManagerStub) Remove(_ context.Context, url string) error {
	f.removed = append(f.removed, url)
	return nil
}

type postFixture struct {
	db     *gorm.DB
	store  repository.Store
	svc    *PostService
	files  *fileManagerStub
	events *recordingPublisher
}

func newPostFixture(t *testing.T) *postFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	store := repository.NewStore(db)
	files := &fileManagerStub{enabled: true, url: "/uploads/thumb.webp"}
	events := &recordingPublisher{}
	return &postFixture{
		db:     db,
		store:  store,
		svc:    NewPostService(store, files, events),
		files:  files,
		events: events,
	}
}

// closeDB makes every later query fail.
func closeDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
