package source

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// PayloadStore is the persistence surface Cached needs. *cache.Store
// satisfies it.
type PayloadStore interface {
	Get(ctx context.Context, source, key string) (string, bool, error)
	Put(ctx context.Context, source, key, payload string) error
	PutMiss(ctx context.Context, source, key string) error
}

// Cached wraps a provider with observation caching. Confirmed no-match
// responses are negatively cached; transport failures are never written, so
// a flaky call is retried on the next run. Cache read/write failures degrade
// to live fetches rather than failing the operation.
func Cached(inner Capability, store PayloadStore) Capability {
	return &cached{
		inner:  inner,
		store:  store,
		logger: zap.L().With(zap.String("component", "source-cache"), zap.String("source", inner.Name())),
	}
}

type cached struct {
	inner  Capability
	store  PayloadStore
	logger *zap.Logger
}

func (c *cached) Name() string { return c.inner.Name() }

func (c *cached) GetByID(ctx context.Context, id string) (*Observation, error) {
	return c.through(ctx, "id:"+id, func() (*Observation, error) {
		return c.inner.GetByID(ctx, id)
	})
}

func (c *cached) Search(ctx context.Context, name string, yearHint int) (*Observation, error) {
	key := fmt.Sprintf("search:%s|%d", name, yearHint)
	return c.through(ctx, key, func() (*Observation, error) {
		return c.inner.Search(ctx, name, yearHint)
	})
}

// ResolveByHints delegates with caching when the wrapped provider supports
// hint resolution.
func (c *cached) ResolveByHints(ctx context.Context, hints Hints) (*Observation, error) {
	hr, ok := c.inner.(HintResolver)
	if !ok {
		return nil, eris.Errorf("%s: hint resolution unsupported", c.inner.Name())
	}
	key := fmt.Sprintf("hints:steam=%s|igdb=%s", hints.SteamAppID, hints.IGDBID)
	return c.through(ctx, key, func() (*Observation, error) {
		return hr.ResolveByHints(ctx, hints)
	})
}

// GetAliases delegates without caching; alias lookups ride on GetByID,
// which the wrapped client already funnels through the cache when wrapped
// at that level.
func (c *cached) GetAliases(ctx context.Context, id string) ([]string, error) {
	ap, ok := c.inner.(AliasProvider)
	if !ok {
		return nil, eris.Errorf("%s: aliases unsupported", c.inner.Name())
	}
	return ap.GetAliases(ctx, id)
}

func (c *cached) through(ctx context.Context, key string, fetch func() (*Observation, error)) (*Observation, error) {
	payload, ok, err := c.store.Get(ctx, c.inner.Name(), key)
	if err != nil {
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		if payload == "" {
			return nil, nil
		}
		var obs Observation
		if err := json.Unmarshal([]byte(payload), &obs); err != nil {
			c.logger.Warn("cache payload corrupt", zap.String("key", key), zap.Error(err))
		} else {
			return &obs, nil
		}
	}

	obs, err := fetch()
	if err != nil {
		return nil, err
	}

	if obs == nil {
		if err := c.store.PutMiss(ctx, c.inner.Name(), key); err != nil {
			c.logger.Warn("cache miss write failed", zap.String("key", key), zap.Error(err))
		}
		return nil, nil
	}
	raw, err := json.Marshal(obs)
	if err != nil {
		return obs, nil
	}
	if err := c.store.Put(ctx, c.inner.Name(), key, string(raw)); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return obs, nil
}
