package memory

import (
	"context"
	"sort"

	"github.com/dropDatabas3/noke/internal/domain/repository"
)

type pluginKey struct{ id, group string }

type pluginDoc struct {
	p   *repository.PluginInstance
	seq int64 // orden de escritura, desempata UpdatedAt
}

type pluginRepo struct{ c *Conn }

func (r *pluginRepo) Create(ctx context.Context, p *repository.PluginInstance) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if p.ID == "" || p.Group == "" {
		return repository.ErrInvalidInput
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	k := pluginKey{p.ID, p.Group}
	if _, ok := r.c.plugins[k]; ok {
		return repository.ErrConflict
	}
	p.Version = 1
	p.UpdatedAt = r.c.now()
	r.c.seq++
	r.c.plugins[k] = &pluginDoc{p: p.Clone(), seq: r.c.seq}
	return nil
}

func (r *pluginRepo) Get(ctx context.Context, id, group string) (*repository.PluginInstance, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	d, ok := r.c.plugins[pluginKey{id, group}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return d.p.Clone(), nil
}

func (r *pluginRepo) FindByID(ctx context.Context, id string) (*repository.PluginInstance, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	var best *pluginDoc
	for k, d := range r.c.plugins {
		if k.id != id {
			continue
		}
		if best == nil || d.seq > best.seq {
			best = d
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return best.p.Clone(), nil
}

func (r *pluginRepo) ListByGroup(ctx context.Context, group string) ([]repository.PluginInstance, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	out := make([]repository.PluginInstance, 0)
	for k, d := range r.c.plugins {
		if k.group == group {
			out = append(out, *d.p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *pluginRepo) Update(ctx context.Context, p *repository.PluginInstance) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	k := pluginKey{p.ID, p.Group}
	d, ok := r.c.plugins[k]
	if !ok {
		return repository.ErrNotFound
	}
	if d.p.Version != p.Version {
		return repository.ErrPreconditionFailed
	}
	p.Version++
	p.UpdatedAt = r.c.now()
	r.c.seq++
	r.c.plugins[k] = &pluginDoc{p: p.Clone(), seq: r.c.seq}
	return nil
}

func (r *pluginRepo) Delete(ctx context.Context, id, group string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	k := pluginKey{id, group}
	if _, ok := r.c.plugins[k]; !ok {
		return repository.ErrNotFound
	}
	delete(r.c.plugins, k)
	return nil
}
