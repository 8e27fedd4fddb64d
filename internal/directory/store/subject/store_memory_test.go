package subject

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatepass/internal/directory/models"
	id "gatepass/pkg/domain"
)

func newTestSubject(rosterID id.RosterID, externalID string) *models.Subject {
	return &models.Subject{
		ID:         id.NewSubjectID(),
		RosterID:   rosterID,
		ExternalID: externalID,
		Attributes: models.Attributes{
			"Full Name": models.String("Jane Doe"),
		},
		CreatedAt: time.Now(),
	}
}

func TestFindByExternalID_ScopedToRoster(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	rosterA := id.NewRosterID()
	rosterB := id.NewRosterID()
	subA := newTestSubject(rosterA, "EMP-001")
	subB := newTestSubject(rosterB, "VIS-001")
	require.NoError(t, store.Create(ctx, subA))
	require.NoError(t, store.Create(ctx, subB))

	found, err := store.FindByExternalID(ctx, "EMP-001", rosterA)
	require.NoError(t, err)
	assert.Equal(t, subA.ID, found.ID)

	// Correct externalID, wrong roster scope.
	_, err = store.FindByExternalID(ctx, "EMP-001", rosterB)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByExternalID_AcrossRosters(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	rosterA := id.NewRosterID()
	rosterB := id.NewRosterID()
	require.NoError(t, store.Create(ctx, newTestSubject(rosterA, "EMP-001")))
	subB := newTestSubject(rosterB, "VIS-001")
	require.NoError(t, store.Create(ctx, subB))

	found, err := store.FindByExternalID(ctx, "VIS-001", id.RosterID{})
	require.NoError(t, err)
	assert.Equal(t, rosterB, found.RosterID)

	_, err = store.FindByExternalID(ctx, "NOPE", id.RosterID{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindAnyInRoster(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	rosterID := id.NewRosterID()
	first := newTestSubject(rosterID, "EMP-001")
	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, newTestSubject(rosterID, "EMP-002")))

	found, err := store.FindAnyInRoster(ctx, rosterID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = store.FindAnyInRoster(ctx, id.NewRosterID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByID_ReturnsCopy(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	sub := newTestSubject(id.NewRosterID(), "EMP-001")
	require.NoError(t, store.Create(ctx, sub))

	found, err := store.FindByID(ctx, sub.ID)
	require.NoError(t, err)
	found.Attributes["Full Name"] = models.String("mutated")

	again, err := store.FindByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", again.Attributes["Full Name"].Str)
}
