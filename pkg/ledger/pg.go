package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/chainsafe/spiral-bridge/pkg/bridge"
	"github.com/chainsafe/spiral-bridge/pkg/pgutil"
)

// SQLSTATE numeric_value_out_of_range
const sqlStateOutOfRange = "22003"

type pgLedger struct {
	db *bun.DB
}

// NewPGLedger creates a ledger backed by the ledger_assets and ledger_balances tables.
// Mints and burns join a transaction carried by ctx (see pgutil.WithTx) inside a
// savepoint; that transaction must belong to db.
func NewPGLedger(db *bun.DB) *pgLedger {
	return &pgLedger{db: db}
}

// JoinsTx reports whether writes made with ctx commit or roll back with the caller's
// transaction.
func (l *pgLedger) JoinsTx(ctx context.Context) bool {
	_, ok := pgutil.TxFromContext(ctx)
	return ok
}

func (l *pgLedger) InitializeAsset(ctx context.Context, decimals uint8, authority bridge.Identity) (AssetHandle, error) {
	dao := &LedgerAssetDao{
		ID:        uuid.NewString(),
		Decimals:  int16(decimals),
		Authority: authority.String(),
	}
	if _, err := l.db.NewInsert().Model(dao).Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to create ledger asset: %w", err)
	}
	return AssetHandle(dao.ID), nil
}

func (l *pgLedger) MintTo(ctx context.Context, asset AssetHandle, recipient bridge.Identity, amount uint64) error {
	if amount > math.MaxInt64 {
		return fmt.Errorf("%w: amount %d", ErrBalanceOverflow, amount)
	}
	return pgutil.IDB(ctx, l.db).RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := l.getAsset(ctx, tx, asset); err != nil {
			return err
		}

		dao := &LedgerBalanceDao{
			AssetID: string(asset),
			Account: recipient.String(),
			Balance: int64(amount),
		}
		_, err := tx.NewInsert().
			Model(dao).
			On("CONFLICT (asset_id, account) DO UPDATE").
			Set("balance = lb.balance + EXCLUDED.balance").
			Set("updated_at = NOW()").
			Exec(ctx)
		if err != nil {
			var pgErr pgdriver.Error
			if errors.As(err, &pgErr) && pgErr.Field('C') == sqlStateOutOfRange {
				return fmt.Errorf("%w: %s", ErrBalanceOverflow, recipient)
			}
			return fmt.Errorf("failed to mint: %w", err)
		}
		return nil
	})
}

func (l *pgLedger) BurnFrom(ctx context.Context, asset AssetHandle, source, authority bridge.Identity, amount uint64) error {
	if amount > math.MaxInt64 {
		return fmt.Errorf("%w: %s", ErrInsufficientFunds, source)
	}
	return pgutil.IDB(ctx, l.db).RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		a, err := l.getAsset(ctx, tx, asset)
		if err != nil {
			return err
		}
		if a.Authority != authority.String() {
			return fmt.Errorf("%w: %s", ErrUnauthorized, authority)
		}

		res, err := tx.NewUpdate().
			Model((*LedgerBalanceDao)(nil)).
			Set("balance = balance - ?", int64(amount)).
			Set("updated_at = NOW()").
			Where("asset_id = ?", string(asset)).
			Where("account = ?", source.String()).
			Where("balance >= ?", int64(amount)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to burn: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to burn: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrInsufficientFunds, source)
		}
		return nil
	})
}

func (l *pgLedger) BalanceOf(ctx context.Context, asset AssetHandle, account bridge.Identity) (uint64, error) {
	db := pgutil.IDB(ctx, l.db)
	if _, err := l.getAsset(ctx, db, asset); err != nil {
		return 0, err
	}

	dao := new(LedgerBalanceDao)
	err := db.NewSelect().
		Model(dao).
		Where("asset_id = ?", string(asset)).
		Where("account = ?", account.String()).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return uint64(dao.Balance), nil
}

func (l *pgLedger) getAsset(ctx context.Context, db bun.IDB, asset AssetHandle) (*LedgerAssetDao, error) {
	dao := new(LedgerAssetDao)
	err := db.NewSelect().
		Model(dao).
		Where("id = ?", string(asset)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, asset)
		}
		return nil, fmt.Errorf("failed to get ledger asset: %w", err)
	}
	return dao, nil
}
