package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"youcube/contract"
	"youcube/domain"
	errs "youcube/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

const assetPrefix = "asset:"

var _ contract.IAssetRepository = (*AssetRepository)(nil)

// AssetRepository indexes the assets produced by the transcode pipeline.
// The files themselves live on disk, badger only keeps their metadata.
type AssetRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewAssetRepository(db *badger.DB, log *slog.Logger) *AssetRepository {
	return &AssetRepository{db: db, log: log}
}

func assetKey(id domain.AssetID) []byte {
	return []byte(assetPrefix + string(id))
}

func (r *AssetRepository) Get(id domain.AssetID) (domain.AssetRecord, error) {
	var record domain.AssetRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(assetKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return msgpack.Unmarshal(v, &record)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.AssetRecord{}, fmt.Errorf("%w: %s", errs.ErrAssetNotFound, id)
	}
	if err != nil {
		return domain.AssetRecord{}, fmt.Errorf("failed to read asset %s: %w", id, err)
	}
	return record, nil
}

// Save stores the record, merging resolutions with an existing entry so a
// later video request does not forget previously transcoded variants.
func (r *AssetRepository) Save(record domain.AssetRecord) error {
	return r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(assetKey(record.ID))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			var existing domain.AssetRecord
			if err := item.Value(func(v []byte) error {
				return msgpack.Unmarshal(v, &existing)
			}); err != nil {
				return fmt.Errorf("failed to decode asset %s: %w", record.ID, err)
			}
			for _, res := range existing.Resolutions {
				if !record.HasResolution(res.Width, res.Height) {
					record.Resolutions = append(record.Resolutions, res)
				}
			}
			if !existing.CreatedAt.IsZero() {
				record.CreatedAt = existing.CreatedAt
			}
		}

		data, err := msgpack.Marshal(record)
		if err != nil {
			return err
		}
		return txn.Set(assetKey(record.ID), data)
	})
}

// List returns at most limit records in key order, limit <= 0 means all.
func (r *AssetRepository) List(limit int) ([]domain.AssetRecord, error) {
	var records []domain.AssetRecord
	prefix := []byte(assetPrefix)

	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(records) >= limit {
				return nil
			}
			err := it.Item().Value(func(v []byte) error {
				var record domain.AssetRecord
				if err := msgpack.Unmarshal(v, &record); err != nil {
					r.log.Warn("Skipping undecodable asset record", "key", string(it.Item().Key()), "error", err)
					return nil
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error during asset listing: %w", err)
	}
	return records, nil
}
