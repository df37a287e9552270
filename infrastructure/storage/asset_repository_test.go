package storage

import (
	"log/slog"
	"testing"
	"time"
	"youcube/domain"
	errs "youcube/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// SetupTestDB initializes a temporary Badger instance for testing
func SetupTestDB(t *testing.T) (*badger.DB, func()) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)

	return db, func() {
		db.Close()
	}
}

func TestAssetRepository_SaveAndGet(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()
	repo := NewAssetRepository(db, logs.GetLoggerFromLevel(slog.LevelDebug))

	createdAt := time.Now().UTC().Truncate(time.Second)
	record := domain.AssetRecord{
		ID:          domain.NewAssetID("https://example.com/song"),
		Title:       "Song",
		SourceURL:   "https://example.com/song",
		Resolutions: []domain.Resolution{{Width: 100, Height: 50}},
		CreatedAt:   createdAt,
	}
	req.NoError(repo.Save(record))

	got, err := repo.Get(record.ID)
	req.NoError(err)
	req.Equal(record.ID, got.ID)
	req.Equal("Song", got.Title)
	req.Equal(record.Resolutions, got.Resolutions)
	req.True(createdAt.Equal(got.CreatedAt))
}

func TestAssetRepository_GetUnknown(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()
	repo := NewAssetRepository(db, logs.GetLoggerFromLevel(slog.LevelDebug))

	_, err := repo.Get("missing")
	req.ErrorIs(err, errs.ErrAssetNotFound)
}

func TestAssetRepository_SaveMergesResolutions(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()
	repo := NewAssetRepository(db, logs.GetLoggerFromLevel(slog.LevelDebug))

	first := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	// Given an asset transcoded in one resolution
	req.NoError(repo.Save(domain.AssetRecord{
		ID:          "id1",
		Resolutions: []domain.Resolution{{Width: 100, Height: 50}},
		CreatedAt:   first,
	}))

	// When the same asset is saved with another resolution
	req.NoError(repo.Save(domain.AssetRecord{
		ID:          "id1",
		Resolutions: []domain.Resolution{{Width: 51, Height: 19}},
		CreatedAt:   time.Now().UTC(),
	}))

	// Then both variants are known and the creation time is kept
	got, err := repo.Get("id1")
	req.NoError(err)
	req.True(got.HasResolution(100, 50))
	req.True(got.HasResolution(51, 19))
	req.True(first.Equal(got.CreatedAt))
}

func TestAssetRepository_List(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()
	repo := NewAssetRepository(db, logs.GetLoggerFromLevel(slog.LevelDebug))

	for _, id := range []domain.AssetID{"a", "b", "c"} {
		req.NoError(repo.Save(domain.AssetRecord{ID: id, CreatedAt: time.Now()}))
	}

	all, err := repo.List(0)
	req.NoError(err)
	req.Len(all, 3)
	req.Equal(domain.AssetID("a"), all[0].ID)

	limited, err := repo.List(2)
	req.NoError(err)
	req.Len(limited, 2)
}
