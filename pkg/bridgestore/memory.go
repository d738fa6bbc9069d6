package bridgestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chainsafe/spiral-bridge/pkg/bridge"
)

type memoryEntry struct {
	mu    sync.Mutex
	asset *bridge.Asset
}

type memoryStore struct {
	mu     sync.RWMutex
	assets map[string]*memoryEntry
	events []bridge.EventRecord
	seq    int64
}

// NewMemoryStore returns a process-local Store. Work runs on a copy of the asset
// that replaces the stored one only when work succeeds.
func NewMemoryStore() *memoryStore {
	return &memoryStore{assets: make(map[string]*memoryEntry)}
}

func (s *memoryStore) Create(_ context.Context, asset *bridge.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[asset.ID]; ok {
		return fmt.Errorf("%w: %s", ErrAssetExists, asset.ID)
	}
	stored := asset.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.MarkPersisted()
	s.assets[asset.ID] = &memoryEntry{asset: stored}
	return nil
}

func (s *memoryStore) Get(_ context.Context, assetID string) (*bridge.Asset, error) {
	e, err := s.entry(assetID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.asset.Clone(), nil
}

func (s *memoryStore) Update(ctx context.Context, assetID string, work Work) ([]bridge.EventRecord, error) {
	e, err := s.entry(assetID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	draft := e.asset.Clone()
	events, err := work(ctx, draft)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	records := make([]bridge.EventRecord, 0, len(events))
	for _, ev := range events {
		s.seq++
		rec := bridge.NewEventRecord(assetID, ev, now)
		rec.Seq = s.seq
		records = append(records, rec)
	}
	s.events = append(s.events, records...)
	draft.MarkPersisted()
	e.asset = draft
	return records, nil
}

func (s *memoryStore) ListEvents(_ context.Context, assetID string, afterSeq int64, limit int) ([]bridge.EventRecord, error) {
	if _, err := s.entry(assetID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]bridge.EventRecord, 0)
	for _, rec := range s.events {
		if limit > 0 && len(out) >= limit {
			break
		}
		if rec.AssetID == assetID && rec.Seq > afterSeq {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *memoryStore) entry(assetID string) (*memoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.assets[assetID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
	}
	return e, nil
}
