package food_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixeltrip/tripboard/internal/app/apperr"
	"github.com/pixeltrip/tripboard/internal/app/apptest"
	"github.com/pixeltrip/tripboard/internal/app/food"
	"github.com/pixeltrip/tripboard/internal/app/patch"
	"github.com/pixeltrip/tripboard/internal/domain"
)

func TestAdd_DefaultsToGrocery(t *testing.T) {
	t.Parallel()
	store, _ := apptest.NewStore()
	svc := food.NewService(store)
	ctx := context.Background()

	_, err := svc.Add(ctx, apptest.Ana, food.AddInput{Name: "  "})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
	_, err = svc.Add(ctx, apptest.Ana, food.AddInput{Name: "Sushi", Type: "takeaway"})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	_, err = svc.Add(ctx, apptest.Ana, food.AddInput{Name: "Eggs"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, apptest.Bo, food.AddInput{Name: "Tacos El Rey", Type: domain.FoodRestaurant, WantedBy: "Mike"})
	require.NoError(t, err)

	b, err := svc.Board(ctx, apptest.Ana)
	require.NoError(t, err)
	require.Len(t, b.GroceryPending, 1)
	assert.Equal(t, "Ana", b.GroceryPending[0].Value.WantedBy)
	require.Len(t, b.RestaurantPending, 1)
	assert.Equal(t, "Mike", b.RestaurantPending[0].Value.WantedBy)
}

func TestUpdate_AnyParticipant(t *testing.T) {
	t.Parallel()
	store, _ := apptest.NewStore()
	svc := food.NewService(store)
	ctx := context.Background()

	id, err := svc.Add(ctx, apptest.Ana, food.AddInput{Name: "Milk"})
	require.NoError(t, err)

	require.NoError(t, svc.Update(ctx, apptest.Bo, id, food.UpdateInput{
		Completed: patch.Some(true),
		Comment:   patch.Some("oat please"),
	}))
	b, err := svc.Board(ctx, apptest.Ana)
	require.NoError(t, err)
	require.Len(t, b.GroceryCompleted, 1)
	assert.Equal(t, "oat please", b.GroceryCompleted[0].Value.Comment)

	require.NoError(t, svc.Update(ctx, apptest.Bo, id, food.UpdateInput{Comment: patch.Null[string]()}))
	err = svc.Update(ctx, apptest.Bo, id, food.UpdateInput{Completed: patch.Null[bool]()})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
	err = svc.Update(ctx, apptest.Bo, id, food.UpdateInput{})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	done, err := svc.ToggleCompleted(ctx, apptest.Bo, id)
	require.NoError(t, err)
	assert.False(t, done)

	recs, err := svc.List(ctx, apptest.Ana)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Empty(t, recs[0].Value.Comment)
	assert.False(t, recs[0].Value.Completed)
}

func TestDelete_Permissions(t *testing.T) {
	t.Parallel()
	store, _ := apptest.NewStore()
	svc := food.NewService(store)
	ctx := context.Background()

	id, err := svc.Add(ctx, apptest.Ana, food.AddInput{Name: "Bread"})
	require.NoError(t, err)

	err = svc.Delete(ctx, apptest.Bo, id)
	assert.True(t, apperr.HasCode(err, apperr.CodePermissionDenied))
	require.NoError(t, svc.Delete(ctx, apptest.Ana, id))
}
