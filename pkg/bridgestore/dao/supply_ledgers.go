package dao

import (
	"time"

	"github.com/uptrace/bun"
)

// SupplyLedgerDao is a data access object that maps directly to the 'supply_ledgers' table in PostgreSQL.
// One row per asset; it is the row locked by every state-changing operation.
type SupplyLedgerDao struct {
	bun.BaseModel `bun:"table:supply_ledgers,alias:sl"`
	AssetID       string    `json:"asset_id" bun:",pk,type:varchar(64)"`
	MaxSupply     int64     `json:"max_supply" bun:",notnull"`
	CurrentSupply int64     `json:"current_supply" bun:",notnull,use_zero"`
	Authority     string    `json:"authority" bun:",notnull,type:varchar(64)"`
	Decimals      int16     `json:"decimals" bun:",notnull,use_zero"`
	MaxNonces     int       `json:"max_nonces" bun:",notnull"`
	CreatedAt     time.Time `json:"created_at" bun:",notnull,nullzero,default:current_timestamp"`
	UpdatedAt     time.Time `json:"updated_at" bun:",notnull,nullzero,default:current_timestamp"`
}
