package services

import (
	"context"

	"github.com/wantam-ink/pledge-backend/models"
)

// PledgeStore is the record store used by ingestion and aggregation.
type PledgeStore interface {
	Insert(ctx context.Context, p *models.PledgeRecord) (bool, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*models.PledgeRecord, error)
	Count(ctx context.Context) (int64, error)
	RegionCounts(ctx context.Context) ([]models.RegionAggregate, error)
}

// StoreHandle is either Live, wrapping a store, or Unavailable. Services check
// it once per call and never inspect the store's concrete type.
type StoreHandle struct {
	store PledgeStore
}

// LiveStore wraps a working record store.
func LiveStore(store PledgeStore) StoreHandle {
	return StoreHandle{store: store}
}

// UnavailableStore marks the record store as not configured.
func UnavailableStore() StoreHandle {
	return StoreHandle{}
}

// Live returns the store and true, or nil and false when unavailable.
func (h StoreHandle) Live() (PledgeStore, bool) {
	return h.store, h.store != nil
}

// Mode names the handle state for health reporting.
func (h StoreHandle) Mode() string {
	if h.store == nil {
		return "unavailable"
	}
	return "live"
}
