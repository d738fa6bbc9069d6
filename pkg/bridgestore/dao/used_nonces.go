package dao

import (
	"time"

	"github.com/uptrace/bun"
)

// UsedNonceDao is a data access object that maps directly to the 'used_nonces' table in PostgreSQL.
type UsedNonceDao struct {
	bun.BaseModel `bun:"table:used_nonces,alias:un"`
	AssetID       string    `json:"asset_id" bun:",pk,type:varchar(64)"`
	Nonce         string    `json:"nonce" bun:",pk,type:varchar(66)"`
	Position      int       `json:"position" bun:",notnull,use_zero"`
	CreatedAt     time.Time `json:"created_at" bun:",notnull,nullzero,default:current_timestamp"`
}
