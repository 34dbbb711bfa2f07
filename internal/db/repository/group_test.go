package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "zbx-import/internal/db"
	"zbx-import/internal/domain"
)

func setupGroupRepo(t *testing.T) *GroupRepo {
	t.Helper()
	writeDB, _ := internaldb.OpenTestSQLite(t)
	return NewGroupRepo(writeDB)
}

func TestGroupRepo_CreateAndGet(t *testing.T) {
	repo := setupGroupRepo(t)
	ctx := context.Background()

	g, err := repo.Create(ctx, "Templates")
	require.NoError(t, err)
	assert.NotEmpty(t, g.ID)
	assert.Equal(t, domain.GroupName("Templates"), g.Name)
	assert.False(t, g.CreatedAt.IsZero())

	found, err := repo.GetByName(ctx, "Templates")
	require.NoError(t, err)
	assert.Equal(t, g.ID, found.ID)
}

func TestGroupRepo_Create_Errors(t *testing.T) {
	repo := setupGroupRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, "Templates")
	require.NoError(t, err)

	_, err = repo.Create(ctx, "Templates")
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, err.Error(), `"Templates" already exists`)

	_, err = repo.Create(ctx, "")
	var validation *domain.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestGroupRepo_GetByName_NotFound(t *testing.T) {
	repo := setupGroupRepo(t)

	_, err := repo.GetByName(context.Background(), "nonexistent")
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestGroupRepo_List(t *testing.T) {
	repo := setupGroupRepo(t)
	ctx := context.Background()

	groups, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)

	for _, name := range []domain.GroupName{"Templates/Operating systems", "Templates"} {
		_, err := repo.Create(ctx, name)
		require.NoError(t, err)
	}

	groups, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, domain.GroupName("Templates"), groups[0].Name)
}
