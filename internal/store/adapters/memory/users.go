package memory

import (
	"context"

	"github.com/dropDatabas3/noke/internal/domain/repository"
)

type userRepo struct{ c *Conn }

func cloneUser(u *repository.User) *repository.User {
	cp := *u
	if u.TOTPLastCounter != nil {
		v := *u.TOTPLastCounter
		cp.TOTPLastCounter = &v
	}
	return &cp
}

func (r *userRepo) Create(ctx context.Context, u *repository.User) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if u.Username == "" {
		return repository.ErrInvalidInput
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	if _, ok := r.c.users[u.Username]; ok {
		return repository.ErrConflict
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.c.now()
	}
	r.c.users[u.Username] = cloneUser(u)
	return nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*repository.User, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	u, ok := r.c.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

// mutate aplica fn sobre el usuario bajo el lock.
func (r *userRepo) mutate(ctx context.Context, username string, fn func(u *repository.User) error) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	u, ok := r.c.users[username]
	if !ok {
		return repository.ErrNotFound
	}
	return fn(u)
}

func (r *userRepo) UpdatePasswordHash(ctx context.Context, username, hash string) error {
	return r.mutate(ctx, username, func(u *repository.User) error {
		u.PasswordHash = hash
		return nil
	})
}

func (r *userRepo) SetPendingTOTP(ctx context.Context, username, secretEnc string) error {
	return r.mutate(ctx, username, func(u *repository.User) error {
		u.TOTPSecretPending = secretEnc
		return nil
	})
}

func (r *userRepo) EnableTOTP(ctx context.Context, username, expectedPending string, counter int64) error {
	return r.mutate(ctx, username, func(u *repository.User) error {
		if expectedPending == "" || u.TOTPSecretPending != expectedPending {
			return repository.ErrPreconditionFailed
		}
		u.TOTPSecret = u.TOTPSecretPending
		u.TOTPSecretPending = ""
		u.TOTPEnabled = true
		u.TOTPLastCounter = &counter
		return nil
	})
}

func (r *userRepo) DisableTOTP(ctx context.Context, username string) error {
	return r.mutate(ctx, username, func(u *repository.User) error {
		u.TOTPEnabled = false
		u.TOTPSecret = ""
		u.TOTPSecretPending = ""
		u.TOTPLastCounter = nil
		return nil
	})
}

func (r *userRepo) MarkTOTPUsed(ctx context.Context, username string, counter int64) error {
	return r.mutate(ctx, username, func(u *repository.User) error {
		if u.TOTPLastCounter != nil && counter <= *u.TOTPLastCounter {
			return repository.ErrPreconditionFailed
		}
		u.TOTPLastCounter = &counter
		return nil
	})
}

type entryRepo struct{ c *Conn }

func (r *entryRepo) ListByUser(ctx context.Context, username string) ([]repository.Entry, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	return append([]repository.Entry(nil), r.c.entries[username]...), nil
}
