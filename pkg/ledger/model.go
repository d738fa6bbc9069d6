package ledger

import (
	"time"

	"github.com/uptrace/bun"
)

// LedgerAssetDao maps to the 'ledger_assets' table in PostgreSQL.
type LedgerAssetDao struct {
	bun.BaseModel `bun:"table:ledger_assets,alias:la"`
	ID            string    `bun:"id,pk,type:varchar(64)"`
	Decimals      int16     `bun:"decimals,notnull,use_zero"`
	Authority     string    `bun:"authority,notnull,type:varchar(64)"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// LedgerBalanceDao maps to the 'ledger_balances' table in PostgreSQL.
// Balances are bigint; amounts above math.MaxInt64 are rejected before they reach SQL.
type LedgerBalanceDao struct {
	bun.BaseModel `bun:"table:ledger_balances,alias:lb"`
	AssetID       string    `bun:"asset_id,pk,type:varchar(64)"`
	Account       string    `bun:"account,pk,type:varchar(64)"`
	Balance       int64     `bun:"balance,notnull,use_zero"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
