package repository

import (
	"context"
	"testing"
	"time"

	"lottobook/domain/entities"
	"lottobook/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderRepository(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewProviderRepository(testDB.DB)
	ctx := context.Background()

	t.Run("create and round-trip arrays", func(t *testing.T) {
		provider := testutil.CreateTestProvider("MAG", "Magnum")
		err := repo.Create(ctx, provider)
		require.NoError(t, err)
		assert.NotZero(t, provider.ID)

		found, err := repo.GetByID(ctx, provider.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, []entities.GameType{entities.GameType3D, entities.GameType4D}, found.GameTypes)
		assert.Equal(t, []entities.WagerShape{entities.WagerShapeBig, entities.WagerShapeSmall, entities.WagerShapeIBox}, found.WagerShapes)
		assert.Equal(t, []time.Weekday{time.Wednesday, time.Saturday, time.Sunday}, found.DrawDays)
		assert.Equal(t, 19, found.CutoffHour)
	})

	t.Run("lookup by code", func(t *testing.T) {
		found, err := repo.GetByCode(ctx, "MAG")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "Magnum", found.Name)

		missing, err := repo.GetByCode(ctx, "NOPE")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("duplicate code rejected", func(t *testing.T) {
		dup := testutil.CreateTestProvider("MAG", "Another")
		err := repo.Create(ctx, dup)
		assert.Error(t, err)
	})

	t.Run("list filters inactive", func(t *testing.T) {
		inactive := testutil.CreateTestProvider("OLD", "Retired")
		inactive.Active = false
		require.NoError(t, repo.Create(ctx, inactive))

		all, err := repo.List(ctx, false)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		active, err := repo.List(ctx, true)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "MAG", active[0].Code)
	})
}
