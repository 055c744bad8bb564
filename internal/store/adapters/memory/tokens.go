package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dropDatabas3/noke/internal/domain/repository"
)

type tokenRepo struct{ c *Conn }

func cloneToken(t *repository.APIToken) *repository.APIToken {
	cp := *t
	cp.Permissions = append([]string(nil), t.Permissions...)
	if t.LastUsed != nil {
		v := *t.LastUsed
		cp.LastUsed = &v
	}
	if t.ExpiresAt != nil {
		v := *t.ExpiresAt
		cp.ExpiresAt = &v
	}
	return &cp
}

func (r *tokenRepo) Create(ctx context.Context, t *repository.APIToken) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if t.ID == "" || t.TokenHash == "" {
		return repository.ErrInvalidInput
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	for id, cur := range r.c.tokens {
		if id == t.ID || cur.TokenHash == t.TokenHash {
			return repository.ErrConflict
		}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.c.now()
	}
	r.c.tokens[t.ID] = cloneToken(t)
	return nil
}

func (r *tokenRepo) GetByHash(ctx context.Context, tokenHash string) (*repository.APIToken, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	for _, t := range r.c.tokens {
		if t.TokenHash == tokenHash {
			return cloneToken(t), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *tokenRepo) ListByUser(ctx context.Context, username string) ([]repository.APIToken, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	out := make([]repository.APIToken, 0)
	for _, t := range r.c.tokens {
		if t.Username == username {
			out = append(out, *cloneToken(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *tokenRepo) Delete(ctx context.Context, id, username string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	t, ok := r.c.tokens[id]
	if !ok || t.Username != username {
		return repository.ErrNotFound
	}
	delete(r.c.tokens, id)
	return nil
}

func (r *tokenRepo) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	t, ok := r.c.tokens[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.LastUsed = &at
	return nil
}
