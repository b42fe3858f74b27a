package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/noah-isme/backend-kasir/internal/session"
)

// repository encodes sessions as JSON snapshots in a session.Store.
type repository struct {
	store session.Store
}

func (r repository) load(ctx context.Context, id string) (*Session, error) {
	data, err := r.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if s.Cart == nil {
		return nil, fmt.Errorf("decode session %s: missing cart", id)
	}
	return &s, nil
}

func (r repository) save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	if err := r.store.Save(ctx, s.ID, data); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

func (r repository) delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, id)
}
