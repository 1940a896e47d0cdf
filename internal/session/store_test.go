package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/internal/kv"
	"github.com/lorekeep/lorekeep/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*session.Store, *kv.Memory) {
	t.Helper()
	kvs := kv.NewMemory()
	store := session.NewStore(kvs, testLogger())
	store.Hydrate(context.Background())
	return store, kvs
}

func TestNewStoreRequiresKV(t *testing.T) {
	assert.Panics(t, func() {
		session.NewStore(nil, testLogger())
	})
}

func TestHydrateEmptyStore(t *testing.T) {
	kvs := kv.NewMemory()
	store := session.NewStore(kvs, testLogger())

	assert.False(t, store.Hydrated(), "fresh store should not report hydrated")
	store.Hydrate(context.Background())
	assert.True(t, store.Hydrated())
	assert.Empty(t, store.Sessions())
	assert.Equal(t, "", store.CurrentSessionID())
}

func TestHydrateRestoresPersistedState(t *testing.T) {
	ctx := context.Background()
	kvs := kv.NewMemory()

	first := session.NewStore(kvs, testLogger())
	first.Hydrate(ctx)
	id := first.AddSession(ctx, "restored")
	first.SetCurrentSessionID(ctx, id)
	first.AppendMessage(ctx, id, session.RoleUser, "hello")

	second := session.NewStore(kvs, testLogger())
	second.Hydrate(ctx)

	require.Len(t, second.Sessions(), 1)
	sess := second.CurrentSession()
	require.NotNil(t, sess)
	assert.Equal(t, id, sess.ID)
	assert.Equal(t, "restored", sess.Title)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, "hello", sess.Messages[0].Content)
}

func TestHydrateCorruptDataStartsEmpty(t *testing.T) {
	ctx := context.Background()
	kvs := kv.NewMemory()
	require.NoError(t, kvs.Set(ctx, session.StorageKey, "{not json"))

	store := session.NewStore(kvs, testLogger())
	store.Hydrate(ctx)

	assert.True(t, store.Hydrated())
	assert.Empty(t, store.Sessions())
}

func TestAddSessionDoesNotSelect(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	id := store.AddSession(ctx, "first")
	assert.NotEmpty(t, id)
	assert.Equal(t, "", store.CurrentSessionID(), "adding must not change the current pointer")
	assert.Nil(t, store.CurrentSession())
	assert.True(t, store.Has(id))
}

func TestAddSessionDefaultTitle(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	id := store.AddSession(ctx, "")
	sess := store.Session(id)
	require.NotNil(t, sess)
	assert.Equal(t, session.DefaultTitle, sess.Title)
}

func TestCurrentSessionDanglingPointer(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	store.SetCurrentSessionID(ctx, "no-such-id")
	assert.Equal(t, "no-such-id", store.CurrentSessionID())
	assert.Nil(t, store.CurrentSession(), "dangling pointer resolves to no session")
}

func TestAppendChatTokenConcatenates(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	id := store.AddSession(ctx, "test")

	store.AppendChatToken(ctx, id, "a")
	store.AppendChatToken(ctx, id, "b")

	sess := store.Session(id)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, "ab", sess.Messages[0].Content)
	assert.Equal(t, session.RoleAssistant, sess.Messages[0].Role)
	assert.True(t, sess.Messages[0].Draft)
}

func TestAppendChatTokenAfterFinalizedMessage(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	id := store.AddSession(ctx, "test")

	store.AppendMessage(ctx, id, session.RoleUser, "question")
	store.AppendChatToken(ctx, id, "ans")
	store.CloseDraft(ctx, id)
	store.AppendChatToken(ctx, id, "next turn")

	sess := store.Session(id)
	require.Len(t, sess.Messages, 3)
	assert.Equal(t, "ans", sess.Messages[1].Content)
	assert.Equal(t, "next turn", sess.Messages[2].Content)
}

func TestAppendChatTokenUnknownSession(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	// Must not create a session or panic.
	store.AppendChatToken(ctx, "ghost", "token")
	assert.Empty(t, store.Sessions())
}

func TestSetMessageContentReplacesDraft(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	id := store.AddSession(ctx, "test")

	store.AppendChatToken(ctx, id, "streamed so far")
	store.SetMessageContent(ctx, id, "final text")

	sess := store.Session(id)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, "final text", sess.Messages[0].Content)
	assert.False(t, sess.Messages[0].Draft)
}

func TestRenameSession(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	id := store.AddSession(ctx, "old title")

	store.RenameSession(ctx, id, "new title")
	assert.Equal(t, "new title", store.Session(id).Title)

	store.RenameSession(ctx, "ghost", "ignored")
	assert.Equal(t, "new title", store.Session(id).Title)
}

func TestDeleteSessionClearsCurrentPointer(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	keep := store.AddSession(ctx, "keep")
	drop := store.AddSession(ctx, "drop")
	store.SetCurrentSessionID(ctx, drop)

	store.DeleteSession(ctx, drop)

	assert.False(t, store.Has(drop))
	assert.True(t, store.Has(keep))
	assert.Equal(t, "", store.CurrentSessionID(), "deleting the current session clears the pointer, no fallback")
}

func TestDeleteOtherSessionKeepsPointer(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	keep := store.AddSession(ctx, "keep")
	drop := store.AddSession(ctx, "drop")
	store.SetCurrentSessionID(ctx, keep)

	store.DeleteSession(ctx, drop)
	assert.Equal(t, keep, store.CurrentSessionID())
}

func TestSessionsReturnsSnapshots(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	id := store.AddSession(ctx, "test")
	store.AppendMessage(ctx, id, session.RoleUser, "original")

	got := store.Sessions()
	require.Len(t, got, 1)
	got[0].Messages[0].Content = "mutated"
	got[0].Title = "mutated"

	sess := store.Session(id)
	assert.Equal(t, "original", sess.Messages[0].Content)
	assert.Equal(t, "test", sess.Title)
}

func TestMutationsWriteThrough(t *testing.T) {
	ctx := context.Background()
	store, kvs := newTestStore(t)

	id := store.AddSession(ctx, "persisted")
	store.AppendMessage(ctx, id, session.RoleUser, "hi")

	raw, err := kvs.Get(ctx, session.StorageKey)
	require.NoError(t, err)

	var p struct {
		Sessions []session.Session `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	require.Len(t, p.Sessions, 1)
	assert.Equal(t, "persisted", p.Sessions[0].Title)
	require.Len(t, p.Sessions[0].Messages, 1)
}

// failingKV rejects all writes to exercise degraded in-memory operation.
type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, error) { return "", kv.ErrNotFound }
func (failingKV) Set(context.Context, string, string) error   { return errors.New("disk full") }
func (failingKV) Remove(context.Context, string) error        { return errors.New("disk full") }

func TestPersistenceFailureKeepsInMemoryState(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(failingKV{}, testLogger())
	store.Hydrate(ctx)

	id := store.AddSession(ctx, "ephemeral")
	store.SetCurrentSessionID(ctx, id)
	store.AppendMessage(ctx, id, session.RoleUser, "still here")

	sess := store.CurrentSession()
	require.NotNil(t, sess, "mutations must succeed in memory when persistence fails")
	assert.Equal(t, "ephemeral", sess.Title)
	require.Len(t, sess.Messages, 1)
}
