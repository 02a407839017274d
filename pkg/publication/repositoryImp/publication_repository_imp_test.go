package repositoryImp

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umbra/database"
	"umbra/entities"
	"umbra/pkg/publication/repository"
)

func newRepo(t *testing.T) repository.PublicationRepository {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "pubs.db"))
	require.NoError(t, err)
	return New(db)
}

func seed(t *testing.T, r repository.PublicationRepository, ps ...*entities.Publication) {
	t.Helper()
	for _, p := range ps {
		if p.ProcessingStatus == "" {
			p.ProcessingStatus = entities.StatusPending
		}
		require.NoError(t, r.Create(context.Background(), p))
	}
}

func TestPublicationRepo_FindAndNotFound(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	p := &entities.Publication{Title: "Plants in orbit", SourceURL: "https://example.org/a", Authors: []string{"A"}}
	seed(t, r, p)

	got, err := r.FindByID(ctx, p.PublicationID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, got.Authors)

	got, err = r.FindBySourceURL(ctx, "https://example.org/a")
	require.NoError(t, err)
	assert.Equal(t, p.PublicationID, got.PublicationID)

	_, err = r.FindByID(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, r.UpdateStatus(ctx, 999, entities.StatusFailed, "x"), repository.ErrNotFound)
}

func TestPublicationRepo_ListFilters(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	seed(t, r,
		&entities.Publication{Title: "Mouse bone loss", Abstract: "Spaceflight reduces bone.", Organisms: []string{"Mice"}, SpaceEnvironments: []string{"ISS"}},
		&entities.Publication{Title: "Root growth", Abstract: "Arabidopsis roots in microgravity.", Organisms: []string{"Arabidopsis thaliana"}, ProcessingStatus: entities.StatusCompleted},
		&entities.Publication{Title: "Yeast under radiation", Organisms: []string{"yeast"}, SpaceEnvironments: []string{"LEO"}},
	)

	items, total, err := r.List(ctx, repository.ListFilter{Query: "BONE"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Mouse bone loss", items[0].Title)

	_, total, err = r.List(ctx, repository.ListFilter{Organisms: []string{"mice", "YEAST"}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	_, total, err = r.List(ctx, repository.ListFilter{Environments: []string{"leo"}, Organisms: []string{"mice", "yeast"}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, total, err = r.List(ctx, repository.ListFilter{Status: entities.StatusCompleted})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	items, total, err = r.List(ctx, repository.ListFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, items, 1)
}

func TestPublicationRepo_UpdateExtracted(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	p := &entities.Publication{Title: "T", ProcessingStatus: entities.StatusProcessing}
	seed(t, r, p)

	require.NoError(t, r.UpdateExtracted(ctx, p.PublicationID, entities.ExtractedEntities{
		Organisms:         []string{"mice"},
		SpaceEnvironments: []string{"ISS"},
	}))
	got, err := r.FindByID(ctx, p.PublicationID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusCompleted, got.ProcessingStatus)
	assert.Equal(t, []string{"mice"}, got.Organisms)
	assert.Equal(t, []string{"ISS"}, got.SpaceEnvironments)
	assert.NotNil(t, got.LastProcessed)

	assert.ErrorIs(t, r.UpdateExtracted(ctx, 404, entities.ExtractedEntities{}), repository.ErrNotFound)
}

func TestPublicationRepo_ViewsSummaryAndDates(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	a := &entities.Publication{Title: "A", PublicationDate: "2019-01-01"}
	b := &entities.Publication{Title: "B", PublicationDate: "2021-06-30"}
	seed(t, r, a, b)

	require.NoError(t, r.IncrementViews(ctx, a.PublicationID))
	require.NoError(t, r.IncrementViews(ctx, a.PublicationID))
	require.NoError(t, r.UpdateSummary(ctx, a.PublicationID, "short"))
	got, err := r.FindByID(ctx, a.PublicationID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ViewCount)
	assert.Equal(t, "short", got.Summary)

	dates, err := r.PublicationDates(ctx, []uint{a.PublicationID, b.PublicationID, 77})
	require.NoError(t, err)
	assert.Equal(t, map[uint]string{a.PublicationID: "2019-01-01", b.PublicationID: "2021-06-30"}, dates)

	byID, err := r.FindByIDs(ctx, []uint{b.PublicationID})
	require.NoError(t, err)
	assert.Equal(t, "B", byID[b.PublicationID].Title)

	pending, err := r.ListByStatus(ctx, entities.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	all, err := r.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPublicationRepo_ListTreatsWildcardsLiterally(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	seed(t, r,
		&entities.Publication{Title: "Bone loss", Organisms: []string{"Mice"}},
		&entities.Publication{Title: "Root growth", Abstract: "50% shorter roots", Organisms: []string{"Arabidopsis thaliana"}},
	)

	items, total, err := r.List(ctx, repository.ListFilter{Query: "%"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Root growth", items[0].Title)

	_, total, err = r.List(ctx, repository.ListFilter{Query: "_"})
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)

	_, total, err = r.List(ctx, repository.ListFilter{Organisms: []string{"%"}})
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}

func TestPublicationRepo_CreateRejectsDuplicateSourceURL(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	seed(t, r, &entities.Publication{Title: "A", SourceURL: "https://example.org/a"})

	err := r.Create(ctx, &entities.Publication{Title: "A again", SourceURL: "https://example.org/a", ProcessingStatus: entities.StatusPending})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}
