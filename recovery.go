package kvfs

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/hviana/kvfs/internal/debug"
	"github.com/hviana/kvfs/kv"
)

// RecoverySweeper scans for unresolved markers left by a crashed save or
// delete and resolves each by deleting the path's chunks and record, the
// way a delete normally would. Errors during the sweep are swallowed: a
// marker that fails to resolve stays in place for the next sweep.
type RecoverySweeper struct {
	engine *Engine
}

// NewRecoverySweeper constructs a sweeper bound to engine. Call Start to
// run it.
func NewRecoverySweeper(engine *Engine) *RecoverySweeper {
	return &RecoverySweeper{engine: engine}
}

// Start begins the sweep in the background and returns immediately.
func (s *RecoverySweeper) Start() {
	go func() {
		if err := s.run(context.Background()); err != nil {
			debug.Log("recovery sweep failed: %v", err)
		}
	}()
}

func (s *RecoverySweeper) run(ctx context.Context) error {
	markers, err := s.scan(ctx)
	if err != nil {
		return err
	}
	if len(markers) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, m := range markers {
		m := m
		g.Go(func() error {
			debug.Log("recovery: resolving unresolved marker for %v", m.Path)
			s.engine.Delete(ctx, DeleteOptions{
				Path:            m.Path,
				ClientID:        m.ClientID,
				ChunksPerSecond: m.ChunksPerSecond,
			})
			return nil
		})
	}
	return g.Wait()
}

func (s *RecoverySweeper) scan(ctx context.Context) ([]unresolvedMarker, error) {
	var markers []unresolvedMarker

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	err := backoff.Retry(func() error {
		markers = markers[:0]
		pager := NewKvPager(s.engine.store, kv.ListParams{Prefix: unresolvedPrefixKey()}, DefaultPageSize)
		for {
			entry, ok, err := pager.Next(ctx)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			var m unresolvedMarker
			if jerr := decodeMarker(entry.Value, &m); jerr != nil {
				continue
			}
			markers = append(markers, m)
		}
		return nil
	}, b)

	return markers, err
}
