package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutena/fotomutena/models"
)

func seeded(t *testing.T, items ...models.Record) *Collection {
	t.Helper()
	c := NewCollection(KeyDesigns, newFileBackend(t), nil)
	if len(items) > 0 {
		_, err := c.Replace(context.Background(), items, "")
		require.NoError(t, err)
	}
	return c
}

func ids(list []models.Record) []string {
	out := make([]string, len(list))
	for i, r := range list {
		out[i] = r.ID
	}
	return out
}

func TestCollectionAddPrependsWithFreshID(t *testing.T) {
	ctx := context.Background()
	c := seeded(t, models.Record{ID: "a", URL: "u1"}, models.Record{ID: "b", URL: "u2"})
	before := c.Items(ctx).Value

	rec, snap, err := c.Add(ctx, models.Record{URL: "https://x/img.jpg", Title: "A"}, "")
	require.NoError(t, err)

	assert.Len(t, snap.Value, len(before)+1)
	assert.NotContains(t, ids(before), rec.ID)
	assert.Equal(t, rec, snap.Value[0])
	assert.Equal(t, []string{rec.ID, "a", "b"}, ids(snap.Value))
	assert.Equal(t, snap.Value, c.Items(ctx).Value)
}

func TestCollectionAddBumpsCollidingID(t *testing.T) {
	ctx := context.Background()
	fixed := time.UnixMilli(1700000000000)
	c := seeded(t, models.Record{ID: "1700000000000", URL: "u"})
	c.now = func() time.Time { return fixed }

	first, _, err := c.Add(ctx, models.Record{URL: "u2"}, "")
	require.NoError(t, err)
	second, _, err := c.Add(ctx, models.Record{URL: "u3"}, "")
	require.NoError(t, err)

	assert.Equal(t, "1700000000001", first.ID)
	assert.Equal(t, "1700000000002", second.ID)
}

func TestCollectionAddRequiresURL(t *testing.T) {
	ctx := context.Background()
	c := seeded(t)
	_, _, err := c.Add(ctx, models.Record{Title: "no url"}, "")
	assert.ErrorIs(t, err, ErrInvalid)
	assert.True(t, c.Items(ctx).Fallback)
}

func TestCollectionRemoveKeepsOrderAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := seeded(t,
		models.Record{ID: "a", URL: "u"},
		models.Record{ID: "b", URL: "u"},
		models.Record{ID: "c", URL: "u"},
	)

	once, err := c.Remove(ctx, "b", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(once.Value))

	twice, err := c.Remove(ctx, "b", "")
	require.NoError(t, err)
	assert.Equal(t, once.Value, twice.Value)
	assert.Equal(t, once.ETag, twice.ETag)
	assert.Equal(t, once.Value, c.Items(ctx).Value)
}

func TestCollectionReplaceWithPermutation(t *testing.T) {
	ctx := context.Background()
	c := seeded(t,
		models.Record{ID: "a", URL: "u1"},
		models.Record{ID: "b", URL: "u2"},
		models.Record{ID: "c", URL: "u3"},
	)
	perm := []models.Record{{ID: "c", URL: "u3"}, {ID: "a", URL: "u1"}, {ID: "b", URL: "u2"}}

	snap, err := c.Replace(ctx, perm, "")
	require.NoError(t, err)
	assert.Equal(t, perm, snap.Value)
	assert.Equal(t, perm, c.Items(ctx).Value)
}

func TestCollectionReplaceValidation(t *testing.T) {
	ctx := context.Background()
	c := seeded(t, models.Record{ID: "a", URL: "u"})

	cases := map[string][]models.Record{
		"nil list":     nil,
		"missing id":   {{URL: "u"}},
		"missing url":  {{ID: "x"}},
		"duplicate id": {{ID: "x", URL: "u"}, {ID: "x", URL: "v"}},
	}
	for name, list := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Replace(ctx, list, "")
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Equal(t, []string{"a"}, ids(c.Items(ctx).Value))
		})
	}

	snap, err := c.Replace(ctx, []models.Record{}, "")
	require.NoError(t, err)
	assert.Empty(t, snap.Value)
	assert.False(t, c.Items(ctx).Fallback)
}

func TestCollectionStaleETagRejected(t *testing.T) {
	ctx := context.Background()
	c := seeded(t, models.Record{ID: "a", URL: "u"})
	stale := c.Items(ctx).ETag

	_, _, err := c.Add(ctx, models.Record{URL: "v"}, "")
	require.NoError(t, err)

	_, err = c.Remove(ctx, "a", stale)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Len(t, c.Items(ctx).Value, 2)
}

func TestCollectionConcurrentAddsAreNotLost(t *testing.T) {
	ctx := context.Background()
	c := seeded(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := c.Add(ctx, models.Record{URL: fmt.Sprintf("https://x/%d.jpg", i)}, "")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	list := c.Items(ctx).Value
	assert.Len(t, list, 20)
	seen := map[string]bool{}
	for _, r := range list {
		assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true
	}
}

func TestScenarioFirstUploadIntoEmptyCollection(t *testing.T) {
	ctx := context.Background()
	c := seeded(t)
	_, err := c.Replace(ctx, []models.Record{}, "")
	require.NoError(t, err)

	rec, snap, err := c.Add(ctx, models.Record{URL: "https://x/img.jpg", Title: "A", Category: "Cat"}, "")
	require.NoError(t, err)
	require.Len(t, snap.Value, 1)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "Cat", snap.Value[0].Category)
	assert.Equal(t, snap.Value, c.Items(ctx).Value)
}

func TestStoresReferencedUploads(t *testing.T) {
	ctx := context.Background()
	s := New(newFileBackend(t))
	_, err := s.Photos.Replace(ctx, []models.Record{
		{ID: "1", URL: "/api/uploads/abc.jpg"},
		{ID: "2", URL: "https://cdn.example/x.jpg"},
	}, "")
	require.NoError(t, err)
	_, err = s.Designs.Replace(ctx, []models.Record{{ID: "3", URL: "http://host/api/uploads/def.png"}}, "")
	require.NoError(t, err)

	refs, err := s.ReferencedUploads(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"abc.jpg": {}, "def.png": {}}, refs)
	assert.NoError(t, s.Close())
}

func TestStoresPhotosFallBackToSeed(t *testing.T) {
	s := New(newFileBackend(t))
	snap := s.Photos.Items(context.Background())
	assert.True(t, snap.Fallback)
	assert.Len(t, snap.Value, 40)
	assert.Empty(t, s.Designs.Items(context.Background()).Value)
	assert.Len(t, s.Collections(), 2)
}
