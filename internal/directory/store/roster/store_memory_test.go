package roster

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatepass/internal/directory/models"
	"gatepass/internal/sentinel"
	id "gatepass/pkg/domain"
)

func newTestRoster(name string) *models.Roster {
	return &models.Roster{
		ID:   id.NewRosterID(),
		Name: name,
		Fields: []models.Field{
			{Name: "Full Name", Type: "text", Role: models.RoleFullName},
			{Name: "Employee ID", Type: "text", Role: models.RoleIdentifier},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestCreate_Success(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	r := newTestRoster("Engineering")
	require.NoError(t, store.Create(ctx, r))

	found, err := store.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Engineering", found.Name)
	assert.Len(t, found.Fields, 2)
}

func TestCreate_DuplicateNameCaseInsensitive(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTestRoster("Engineering")))

	err := store.Create(ctx, newTestRoster("ENGINEERING"))
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)
}

func TestFindByName(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	r := newTestRoster("Visitors")
	require.NoError(t, store.Create(ctx, r))

	found, err := store.FindByName(ctx, "visitors")
	require.NoError(t, err)
	assert.Equal(t, r.ID, found.ID)

	_, err = store.FindByName(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_PreservesCreationOrder(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	first := newTestRoster("First")
	second := newTestRoster("Second")
	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)
}

func TestUpdateFields(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	r := newTestRoster("Engineering")
	require.NoError(t, store.Create(ctx, r))

	updated := []models.Field{
		{Name: "Full Name", Type: "text", Role: models.RoleFullName},
		{Name: "Badge", Type: "text", Role: models.RoleIdentifier},
		{Name: "Team", Type: "text", Role: models.RoleDepartment},
	}
	require.NoError(t, store.UpdateFields(ctx, r.ID, updated))

	found, err := store.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, found.Fields, 3)
	assert.Equal(t, "Team", found.Fields[2].Name)
}

func TestUpdateFields_UnknownRoster(t *testing.T) {
	store := NewInMemory()
	err := store.UpdateFields(context.Background(), id.NewRosterID(), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByID_ReturnsCopy(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	r := newTestRoster("Engineering")
	require.NoError(t, store.Create(ctx, r))

	found, err := store.FindByID(ctx, r.ID)
	require.NoError(t, err)
	found.Fields[0].Name = "mutated"

	again, err := store.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Full Name", again.Fields[0].Name)
}
