// Package ledgertest holds behaviour tests shared by every ledger.Store
// backend.
package ledgertest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/ledger"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/types"
)

// Opener returns a handle on one backing location. Calling it twice must
// return two handles on the same data.
type Opener func(t *testing.T) ledger.Store

// Run exercises the Store contract. newOpener is called once per subtest and
// must return an opener for a fresh, empty backing location.
func Run(t *testing.T, newOpener func(t *testing.T) Opener) {
	t.Run("EmptyLoad", func(t *testing.T) {
		s := newOpener(t)(t)
		defer s.Close()

		all, err := s.LoadAll(context.Background())
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("UpsertIdempotent", func(t *testing.T) {
		ctx := context.Background()
		s := newOpener(t)(t)
		defer s.Close()

		at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		item := types.ProcessedItem{ID: "abc", Kind: types.KindComment, ProcessedAt: at}
		require.NoError(t, s.Upsert(ctx, item))
		require.NoError(t, s.Upsert(ctx, item))
		require.NoError(t, s.Upsert(ctx, types.ProcessedItem{ID: "abc", Kind: types.KindComment, ProcessedAt: at.Add(time.Hour)}))

		all, err := s.LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "abc", all[0].ID)
		assert.Equal(t, types.KindComment, all[0].Kind)
		assert.True(t, at.Equal(all[0].ProcessedAt), "ProcessedAt=%s, want first write %s", all[0].ProcessedAt, at)
	})

	t.Run("SurvivesReopen", func(t *testing.T) {
		ctx := context.Background()
		open := newOpener(t)
		s1 := open(t)
		require.NoError(t, s1.Upsert(ctx, types.ProcessedItem{ID: "s1", Kind: types.KindSubmission, ProcessedAt: time.Now().UTC()}))
		require.NoError(t, s1.Upsert(ctx, types.ProcessedItem{ID: "c1", Kind: types.KindComment, ProcessedAt: time.Now().UTC()}))
		require.NoError(t, s1.Close())

		s2 := open(t)
		defer s2.Close()
		l, err := ledger.Open(ctx, s2)
		require.NoError(t, err)
		assert.True(t, l.Contains("s1"))
		assert.True(t, l.Contains("c1"))
		assert.False(t, l.Contains("x9"))
		assert.Equal(t, 2, l.Len())
	})
}
