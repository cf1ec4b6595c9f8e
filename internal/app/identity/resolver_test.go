package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixeltrip/tripboard/internal/app/apperr"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver(
		[]InviteCode{
			{Code: "beach2025", TripGroup: "SUMMER_HOUSE", Description: "Summer house"},
			{Code: "SKI", TripGroup: "WINTER_CABIN"},
		},
		[]AdminCode{
			{Code: "MIKEADMIN", TripGroup: "SUMMER_HOUSE", ParticipantID: "admin-mike", Name: "Mike", Avatar: "🦊"},
		},
	)
	require.NoError(t, err)
	return r
}

func TestResolve_PlainCode(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t)
	res, err := r.Resolve("  beach2025 ")
	require.NoError(t, err)
	assert.EqualValues(t, "SUMMER_HOUSE", res.TripGroup)
	assert.Equal(t, "Summer house", res.Description)
	assert.Nil(t, res.Admin)
}

func TestResolve_AdminCode(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t)
	res, err := r.Resolve("mikeadmin")
	require.NoError(t, err)
	require.NotNil(t, res.Admin)
	assert.EqualValues(t, "admin-mike", res.Admin.ParticipantID)
	assert.True(t, res.Admin.IsAdmin)
	assert.EqualValues(t, "SUMMER_HOUSE", res.TripGroup)
}

func TestResolve_UnknownCode(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t)
	for _, code := range []string{"", "BEACH", "beach 2025"} {
		_, err := r.Resolve(code)
		assert.True(t, apperr.HasCode(err, apperr.CodeInvalidCode), "code %q err=%v", code, err)
	}
}

func TestNewResolver_RejectsDuplicates(t *testing.T) {
	t.Parallel()

	_, err := NewResolver([]InviteCode{
		{Code: "abc", TripGroup: "G"},
		{Code: " ABC", TripGroup: "H"},
	}, nil)
	assert.Error(t, err)

	_, err = NewResolver([]InviteCode{{Code: "abc", TripGroup: "G"}},
		[]AdminCode{{Code: "ABC", TripGroup: "G", ParticipantID: "p", Name: "n"}})
	assert.Error(t, err)
}

func TestInviteCodeForAndGroups(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t)
	code, ok := r.InviteCodeFor("SUMMER_HOUSE")
	require.True(t, ok)
	assert.Equal(t, "BEACH2025", code)

	_, ok = r.InviteCodeFor("NOWHERE")
	assert.False(t, ok)
	assert.Len(t, r.Groups(), 2)
}

func TestAdminNames(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t)
	assert.Equal(t, []string{"Mike"}, r.AdminNames("SUMMER_HOUSE"))
	assert.Empty(t, r.AdminNames("WINTER_CABIN"))
}
