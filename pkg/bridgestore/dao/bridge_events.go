package dao

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BridgeEventDao is a data access object that maps directly to the 'bridge_events' table in PostgreSQL.
// Rows are only ever inserted; Seq orders the log across all assets.
type BridgeEventDao struct {
	bun.BaseModel `bun:"table:bridge_events,alias:be"`
	Seq           int64     `json:"seq" bun:",pk,autoincrement"`
	ID            uuid.UUID `json:"id" bun:",unique,notnull,type:uuid"`
	AssetID       string    `json:"asset_id" bun:",notnull,type:varchar(64)"`
	Kind          string    `json:"kind" bun:",notnull,type:varchar(64)"`
	Payload       string    `json:"payload" bun:",notnull,type:jsonb"`
	CreatedAt     time.Time `json:"created_at" bun:",notnull,nullzero,default:current_timestamp"`
}
