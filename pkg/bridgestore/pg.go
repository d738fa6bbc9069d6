package bridgestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/chainsafe/spiral-bridge/pkg/bridge"
	"github.com/chainsafe/spiral-bridge/pkg/bridgestore/dao"
	"github.com/chainsafe/spiral-bridge/pkg/pgutil"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the bridge store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) Create(ctx context.Context, asset *bridge.Asset) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		supply := toSupplyLedgerDao(asset)
		if !asset.CreatedAt.IsZero() {
			supply.CreatedAt = asset.CreatedAt
		}
		if _, err := tx.NewInsert().Model(supply).Exec(ctx); err != nil {
			var pgErr pgdriver.Error
			if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
				return fmt.Errorf("%w: %s", ErrAssetExists, asset.ID)
			}
			return fmt.Errorf("failed to create supply ledger: %w", err)
		}
		return s.saveRegistries(ctx, tx, asset)
	})
	if err != nil {
		return err
	}
	asset.MarkPersisted()
	return nil
}

func (s *pgStore) Get(ctx context.Context, assetID string) (*bridge.Asset, error) {
	return s.load(ctx, s.db, assetID, false)
}

func (s *pgStore) Update(ctx context.Context, assetID string, work Work) ([]bridge.EventRecord, error) {
	var records []bridge.EventRecord
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		asset, err := s.load(ctx, tx, assetID, true)
		if err != nil {
			return err
		}

		events, err := work(pgutil.WithTx(ctx, tx), asset)
		if err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Model((*dao.SupplyLedgerDao)(nil)).
			Set("current_supply = ?", int64(asset.Supply.CurrentSupply)).
			Set("updated_at = NOW()").
			Where("asset_id = ?", assetID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update supply ledger: %w", err)
		}
		if err := s.saveRegistries(ctx, tx, asset); err != nil {
			return err
		}

		records, err = s.appendEvents(ctx, tx, assetID, events)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *pgStore) ListEvents(ctx context.Context, assetID string, afterSeq int64, limit int) ([]bridge.EventRecord, error) {
	exists, err := s.db.NewSelect().
		Model((*dao.SupplyLedgerDao)(nil)).
		Where("asset_id = ?", assetID).
		Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check asset exists: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
	}

	var daos []dao.BridgeEventDao
	q := s.db.NewSelect().
		Model(&daos).
		Where("asset_id = ?", assetID).
		Where("seq > ?", afterSeq).
		Order("seq ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	records := make([]bridge.EventRecord, 0, len(daos))
	for i := range daos {
		rec, err := toEventRecord(&daos[i])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// load reads the full aggregate. With forUpdate the supply row stays locked until the
// surrounding transaction ends.
func (s *pgStore) load(ctx context.Context, db bun.IDB, assetID string, forUpdate bool) (*bridge.Asset, error) {
	supplyDao := new(dao.SupplyLedgerDao)
	q := db.NewSelect().Model(supplyDao).Where("asset_id = ?", assetID)
	if forUpdate {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
		}
		return nil, fmt.Errorf("failed to get supply ledger: %w", err)
	}
	supply, err := toSupplyLedger(supplyDao)
	if err != nil {
		return nil, err
	}

	var nonceDaos []dao.UsedNonceDao
	err = db.NewSelect().
		Model(&nonceDaos).
		Where("asset_id = ?", assetID).
		Order("position ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get used nonces: %w", err)
	}
	nonces := make([]bridge.Nonce, 0, len(nonceDaos))
	for _, d := range nonceDaos {
		n, err := bridge.ParseNonce(d.Nonce)
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", assetID, err)
		}
		nonces = append(nonces, n)
	}

	var remoteDaos []dao.TrustedRemoteDao
	err = db.NewSelect().
		Model(&remoteDaos).
		Where("asset_id = ?", assetID).
		Order("chain_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get trusted remotes: %w", err)
	}
	remotes := make([]bridge.TrustedRemote, 0, len(remoteDaos))
	for i := range remoteDaos {
		t, err := toTrustedRemote(&remoteDaos[i])
		if err != nil {
			return nil, err
		}
		remotes = append(remotes, t)
	}

	return &bridge.Asset{
		ID:        assetID,
		Supply:    supply,
		Nonces:    bridge.NewNonceRegistry(supplyDao.MaxNonces, nonces...),
		Remotes:   bridge.NewRemoteRegistry(remotes...),
		CreatedAt: supplyDao.CreatedAt,
	}, nil
}

// saveRegistries writes nonces added and remotes changed since load.
func (s *pgStore) saveRegistries(ctx context.Context, tx bun.Tx, asset *bridge.Asset) error {
	if nonces := toUsedNonceDaos(asset.ID, asset.Nonces); len(nonces) > 0 {
		if _, err := tx.NewInsert().Model(&nonces).Exec(ctx); err != nil {
			var pgErr pgdriver.Error
			if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
				return fmt.Errorf("%w: concurrent insert", bridge.ErrNonceAlreadyUsed)
			}
			return fmt.Errorf("failed to insert used nonces: %w", err)
		}
	}

	dirty := asset.Remotes.Dirty()
	if len(dirty) == 0 {
		return nil
	}
	remotes := make([]dao.TrustedRemoteDao, len(dirty))
	for i, t := range dirty {
		remotes[i] = toTrustedRemoteDao(asset.ID, t)
	}
	_, err := tx.NewInsert().
		Model(&remotes).
		On("CONFLICT (asset_id, chain_id) DO UPDATE").
		Set("address = EXCLUDED.address").
		Set("address_length = EXCLUDED.address_length").
		Set("updated_at = NOW()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert trusted remotes: %w", err)
	}
	return nil
}

func (s *pgStore) appendEvents(ctx context.Context, tx bun.Tx, assetID string, events []bridge.Event) ([]bridge.EventRecord, error) {
	if len(events) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	records := make([]bridge.EventRecord, len(events))
	daos := make([]dao.BridgeEventDao, len(events))
	for i, ev := range events {
		records[i] = bridge.NewEventRecord(assetID, ev, now)
		d, err := toBridgeEventDao(records[i])
		if err != nil {
			return nil, err
		}
		daos[i] = *d
	}

	if _, err := tx.NewInsert().Model(&daos).Returning("seq, created_at").Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to append events: %w", err)
	}
	for i := range daos {
		records[i].Seq = daos[i].Seq
		records[i].CreatedAt = daos[i].CreatedAt
	}
	return records, nil
}
