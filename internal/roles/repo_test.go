package roles

import (
	"context"
	"testing"

	"github.com/angelmondragon/mapas-backend/pkg/db/dbtest"
	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/stretchr/testify/require"
)

func TestRepositoryCreateListDelete(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	user := models.User{AuthProvider: 1, AuthUID: "uid", Email: "a@example.org"}
	require.NoError(t, conn.Create(&user).Error)

	first := &models.Role{UserID: user.ID, Name: "admin"}
	second := &models.Role{UserID: user.ID, Name: "admin", SubsiteID: ptr(4)}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	rows, err := repo.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Nil(t, rows[0].SubsiteID)
	require.Equal(t, int64(4), *rows[1].SubsiteID)

	require.NoError(t, repo.Delete(ctx, first.ID))
	rows, err = repo.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, second.ID, rows[0].ID)
}
