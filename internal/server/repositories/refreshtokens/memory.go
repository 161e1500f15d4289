package refreshtokens

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
)

// MemoryRepository keeps records in a map guarded by one mutex, which makes
// every method, Rotate included, trivially atomic. Records are lost on restart.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]models.RefreshToken
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]models.RefreshToken)}
}

func (r *MemoryRepository) Insert(ctx context.Context, token *models.RefreshToken) error {
	if err := ctx.Err(); err != nil {
		return storeError("context", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(token)
}

func (r *MemoryRepository) insertLocked(token *models.RefreshToken) error {
	if _, ok := r.records[token.TokenID]; ok {
		return fmt.Errorf("%w: %s", common.ErrDuplicateTokenID, token.TokenID)
	}
	r.records[token.TokenID] = *token
	return nil
}

func (r *MemoryRepository) FindByTokenID(ctx context.Context, id string) (*models.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeError("context", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.records[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r *MemoryRepository) Revoke(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return storeError("context", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.records[id]; ok {
		t.Revoked = true
		r.records[id] = t
	}
	return nil
}

func (r *MemoryRepository) Rotate(ctx context.Context, oldID string, next *models.RefreshToken) error {
	if err := ctx.Err(); err != nil {
		return storeError("context", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.records[oldID]
	if !ok {
		return common.ErrorNotFound
	}
	if old.Revoked {
		return common.ErrTokenRevoked
	}
	if err := r.insertLocked(next); err != nil {
		return err
	}
	old.Revoked = true
	r.records[oldID] = old
	return nil
}

func (r *MemoryRepository) RevokeAllForSubject(ctx context.Context, subject string, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storeError("context", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, t := range r.records {
		if t.Subject == subject && t.Usable(now) {
			t.Revoked = true
			r.records[id] = t
			n++
		}
	}
	return n, nil
}
