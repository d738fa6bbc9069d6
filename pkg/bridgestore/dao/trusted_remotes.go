package dao

import (
	"time"

	"github.com/uptrace/bun"
)

// TrustedRemoteDao is a data access object that maps directly to the 'trusted_remotes' table in PostgreSQL.
// Address is the 0x-hex of the 32-byte left-padded remote address.
type TrustedRemoteDao struct {
	bun.BaseModel `bun:"table:trusted_remotes,alias:tr"`
	AssetID       string    `json:"asset_id" bun:",pk,type:varchar(64)"`
	ChainID       int32     `json:"chain_id" bun:",pk"`
	Address       string    `json:"address" bun:",notnull,type:varchar(66)"`
	AddressLength int16     `json:"address_length" bun:",notnull"`
	UpdatedAt     time.Time `json:"updated_at" bun:",notnull,nullzero,default:current_timestamp"`
}
