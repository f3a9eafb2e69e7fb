package kvtest

import (
	"context"
	"math/rand"
	"sync"

	"github.com/hviana/kvfs/internal/errors"
	"github.com/hviana/kvfs/kv"
)

// Flaky wraps a kv.Store and induces errors according to configured
// probabilities, for exercising the engine's retry and crash-recovery
// paths deterministically under a fixed seed.
type Flaky struct {
	kv.Store

	FailSet    float32
	FailGet    float32
	FailDelete float32
	FailList   float32

	r *rand.Rand
	m sync.Mutex
}

var _ kv.Store = (*Flaky)(nil)

// NewFlaky wraps store with a Flaky that uses seed for its failure
// decisions, so a failing test run is reproducible.
func NewFlaky(store kv.Store, seed int64) *Flaky {
	return &Flaky{Store: store, r: rand.New(rand.NewSource(seed))}
}

func (f *Flaky) fail(p float32) bool {
	f.m.Lock()
	v := f.r.Float32()
	f.m.Unlock()
	return v < p
}

func (f *Flaky) Get(ctx context.Context, key kv.Key) ([]byte, error) {
	if f.fail(f.FailGet) {
		return nil, errors.Errorf("kvtest: Get(%v) induced error", key)
	}
	return f.Store.Get(ctx, key)
}

func (f *Flaky) Set(ctx context.Context, key kv.Key, value []byte) error {
	if f.fail(f.FailSet) {
		return errors.Errorf("kvtest: Set(%v) induced error", key)
	}
	return f.Store.Set(ctx, key, value)
}

func (f *Flaky) Delete(ctx context.Context, key kv.Key) error {
	if f.fail(f.FailDelete) {
		return errors.Errorf("kvtest: Delete(%v) induced error", key)
	}
	return f.Store.Delete(ctx, key)
}

func (f *Flaky) List(ctx context.Context, params kv.ListParams) ([]kv.Entry, kv.Cursor, bool, error) {
	if f.fail(f.FailList) {
		return nil, nil, false, errors.Errorf("kvtest: List(%+v) induced error", params)
	}
	return f.Store.List(ctx, params)
}
