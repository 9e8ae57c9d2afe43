package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/partnerline/internal/model"
	"github.com/unclebandit/partnerline/internal/repository"
)

func TestPartnerRepository_CreateAndGet(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	_, err := conn.ExecContext(ctx, `INSERT INTO regions (name) VALUES ('Midwest')`)
	require.NoError(t, err)

	repo := &repository.PartnerRepository{DB: conn}
	p := &model.Partner{FirstName: "Sam", LastName: "Lee", Company: "Acme", Phone: " +15550001111 ", RegionName: "Midwest", TSDName: "Unknown TSD"}
	require.NoError(t, repo.Create(ctx, p))
	require.NotZero(t, p.ID)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "+15550001111", got.Phone)
	assert.Equal(t, "Midwest", got.RegionName)
	assert.Equal(t, "", got.TSDName)
	assert.Nil(t, got.LastContacted)
	assert.False(t, got.OptedOut)

	byPhone, err := repo.GetByPhone(ctx, "+15550001111")
	require.NoError(t, err)
	require.NotNil(t, byPhone)
	assert.Equal(t, p.ID, byPhone.ID)

	missing, err := repo.GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPartnerRepository_ListActiveAndFlags(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	repo := &repository.PartnerRepository{DB: conn}

	active := &model.Partner{FirstName: "A", Phone: "+1"}
	archived := &model.Partner{FirstName: "B", Phone: "+2", Archived: true}
	optedOut := &model.Partner{FirstName: "C", Phone: "+3"}
	for _, p := range []*model.Partner{active, archived, optedOut} {
		require.NoError(t, repo.Create(ctx, p))
	}
	require.NoError(t, repo.SetOptedOut(ctx, optedOut.ID, true))

	list, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, active.ID, list[0].ID)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.TouchLastContacted(ctx, active.ID, at))
	got, err := repo.GetByID(ctx, active.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastContacted)
	assert.True(t, got.LastContacted.Equal(at))

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	never, err := repo.CountNeverContacted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, never)
}
