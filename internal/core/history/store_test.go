package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viewdesk/viewdesk/internal/storage"
)

type failingKV struct{}

func (failingKV) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("boom")
}
func (failingKV) Set(ctx context.Context, key, value string) error { return errors.New("boom") }
func (failingKV) Delete(ctx context.Context, key string) error     { return errors.New("boom") }

func fixedClock(start time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Second)
	}
}

func TestStore_AddCapsAndOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemoryKV(), DefaultLimit)
	s.now = fixedClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < 25; i++ {
		require.NoError(t, s.Add(ctx, "v1", map[string]interface{}{"n": float64(i)}))
	}

	entries := s.Get(ctx, "v1")
	require.Len(t, entries, 20)
	assert.Equal(t, float64(24), entries[0].Data["n"])
	assert.Equal(t, float64(5), entries[19].Data["n"])
	assert.Equal(t, "2024-05-01T12:00:25.000Z", entries[0].Timestamp)
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()

	require.NoError(t, NewStore(kv, 5).Add(ctx, "v1", map[string]interface{}{"name": "a"}))
	require.NoError(t, NewStore(kv, 5).Add(ctx, "v2", map[string]interface{}{"name": "b"}))

	s := NewStore(kv, 5)
	assert.Len(t, s.Get(ctx, "v1"), 1)
	assert.Len(t, s.Get(ctx, "v2"), 1)
	assert.Equal(t, "b", s.Get(ctx, "v2")[0].Data["name"])
}

func TestStore_EmptyViewIDIsIgnored(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	s := NewStore(kv, 0)

	require.NoError(t, s.Add(ctx, "", map[string]interface{}{"x": 1}))

	_, ok, _ := kv.Get(ctx, storage.KeyViewHistory)
	assert.False(t, ok, "nothing should be written")
	assert.Equal(t, DefaultLimit, s.Limit())
}

func TestStore_GetNeverReturnsNil(t *testing.T) {
	ctx := context.Background()

	s := NewStore(storage.NewMemoryKV(), 0)
	assert.NotNil(t, s.Get(ctx, "missing"))

	broken := NewStore(failingKV{}, 0)
	assert.NotNil(t, broken.Get(ctx, "missing"))
	assert.Error(t, broken.Add(ctx, "v", map[string]interface{}{}))
}

func TestStore_MalformedDocumentTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, storage.KeyViewHistory, "{not json"))

	s := NewStore(kv, 0)
	assert.Empty(t, s.Get(ctx, "v1"))

	require.NoError(t, s.Add(ctx, "v1", map[string]interface{}{"ok": true}))
	assert.Len(t, s.Get(ctx, "v1"), 1)
}

func TestStore_At(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemoryKV(), 0)
	require.NoError(t, s.Add(ctx, "v1", map[string]interface{}{"rev": "old"}))
	require.NoError(t, s.Add(ctx, "v1", map[string]interface{}{"rev": "new"}))

	e, err := s.At(ctx, "v1", 1)
	require.NoError(t, err)
	assert.Equal(t, "old", e.Data["rev"])

	_, err = s.At(ctx, "v1", 2)
	assert.ErrorIs(t, err, ErrVersionNotFound)
}
