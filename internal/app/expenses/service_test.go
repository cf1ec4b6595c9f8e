package expenses_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixeltrip/tripboard/internal/app/apperr"
	"github.com/pixeltrip/tripboard/internal/app/apptest"
	"github.com/pixeltrip/tripboard/internal/app/channel"
	"github.com/pixeltrip/tripboard/internal/app/expenses"
	"github.com/pixeltrip/tripboard/internal/domain"
)

func newService(t *testing.T) (*expenses.Service, *apptest.CountingStore) {
	t.Helper()
	store, _ := apptest.NewStore()
	people := channel.New[domain.ParticipantProfile](store, domain.CollectionParticipants)
	for _, a := range []domain.Actor{apptest.Admin, apptest.Ana, apptest.Bo} {
		err := people.Put(context.Background(), apptest.Group, domain.RecordID(a.ParticipantID),
			domain.ParticipantProfile{Name: a.Name, Avatar: a.Avatar, IsAdmin: a.IsAdmin})
		require.NoError(t, err)
	}
	return expenses.NewService(store, people), store
}

func TestAdd_Validation(t *testing.T) {
	t.Parallel()
	svc, store := newService(t)
	ctx := context.Background()
	before := store.Mutations()

	cases := map[string]expenses.AddInput{
		"no description": {Amount: 10, PaidBy: "ana-1", SplitBetween: []domain.ParticipantID{"ana-1"}},
		"zero amount":    {Description: "Gas", PaidBy: "ana-1", SplitBetween: []domain.ParticipantID{"ana-1"}},
		"negative":       {Description: "Gas", Amount: -5, PaidBy: "ana-1", SplitBetween: []domain.ParticipantID{"ana-1"}},
		"no payer":       {Description: "Gas", Amount: 10, SplitBetween: []domain.ParticipantID{"ana-1"}},
		"empty split":    {Description: "Gas", Amount: 10, PaidBy: "ana-1"},
		"blank split":    {Description: "Gas", Amount: 10, PaidBy: "ana-1", SplitBetween: []domain.ParticipantID{""}},
		"unknown payer":  {Description: "Gas", Amount: 10, PaidBy: "ghost-9", SplitBetween: []domain.ParticipantID{"ana-1"}},
		"unknown split":  {Description: "Gas", Amount: 10, PaidBy: "ana-1", SplitBetween: []domain.ParticipantID{"ana-1", "ghost-9"}},
	}
	for name, in := range cases {
		_, err := svc.Add(ctx, apptest.Ana, in)
		assert.True(t, apperr.HasCode(err, apperr.CodeValidation), name)
	}
	assert.Equal(t, before, store.Mutations())
}

func TestBalances_ThreeWaySplit(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, apptest.Ana, expenses.AddInput{
		Description:  "Groceries",
		Amount:       30,
		PaidBy:       "admin-mike",
		SplitBetween: []domain.ParticipantID{"ana-1", "bo-2", "admin-mike", "bo-2"},
	})
	require.NoError(t, err)

	got, err := svc.Balances(ctx, apptest.Ana)
	require.NoError(t, err)
	require.Len(t, got, 3)

	byID := map[domain.ParticipantID]expenses.Balance{}
	for _, b := range got {
		byID[b.ParticipantID] = b
	}
	assert.InDelta(t, 20.0, byID["admin-mike"].Amount, 1e-9)
	assert.InDelta(t, -10.0, byID["ana-1"].Amount, 1e-9)
	assert.InDelta(t, -10.0, byID["bo-2"].Amount, 1e-9)
	assert.Equal(t, []string{"Ana", "Bo", "Mike"}, []string{got[0].Name, got[1].Name, got[2].Name})
}

func TestDelete_AuthorOrAdmin(t *testing.T) {
	t.Parallel()
	svc, store := newService(t)
	ctx := context.Background()

	id, err := svc.Add(ctx, apptest.Ana, expenses.AddInput{
		Description: "Gas", Amount: 12.5, PaidBy: "ana-1", SplitBetween: []domain.ParticipantID{"ana-1", "bo-2"},
	})
	require.NoError(t, err)

	before := store.Mutations()
	err = svc.Delete(ctx, apptest.Bo, id)
	assert.True(t, apperr.HasCode(err, apperr.CodePermissionDenied))
	assert.Equal(t, before, store.Mutations())

	require.NoError(t, svc.Delete(ctx, apptest.Admin, id))
	recs, err := svc.List(ctx, apptest.Ana)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestList_NewestFirst(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	for _, d := range []string{"first", "second"} {
		_, err := svc.Add(ctx, apptest.Bo, expenses.AddInput{
			Description: d, Amount: 1, PaidBy: "bo-2", SplitBetween: []domain.ParticipantID{"bo-2"},
		})
		require.NoError(t, err)
	}
	recs, err := svc.List(ctx, apptest.Bo)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "second", recs[0].Value.Description)
}
