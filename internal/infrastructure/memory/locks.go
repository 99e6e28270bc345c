package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/obra-stock/internal/domain"
)

// lockTable bloqueos exclusivos por clave con espera acotada.
// Una clave sin dueño ni esperas se elimina de la tabla.
type lockTable struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int // dueño más esperas
}

func newLockTable() *lockTable {
	return &lockTable{slots: make(map[string]*lockSlot)}
}

func (t *lockTable) ref(key string) *lockSlot {
	t.mu.Lock()
	defer t.mu.Unlock()
	sl, ok := t.slots[key]
	if !ok {
		sl = &lockSlot{ch: make(chan struct{}, 1)}
		t.slots[key] = sl
	}
	sl.refs++
	return sl
}

func (t *lockTable) unref(key string, sl *lockSlot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sl.refs--
	if sl.refs == 0 {
		delete(t.slots, key)
	}
}

// acquire espera a lo sumo timeout; al vencer devuelve domain.ErrBusy.
func (t *lockTable) acquire(ctx context.Context, key string, timeout time.Duration) error {
	sl := t.ref(key)
	select {
	case sl.ch <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case sl.ch <- struct{}{}:
		return nil
	case <-timer.C:
		t.unref(key, sl)
		return fmt.Errorf("%w: bloqueo %s", domain.ErrBusy, key)
	case <-ctx.Done():
		t.unref(key, sl)
		return fmt.Errorf("%w: %v", domain.ErrBusy, ctx.Err())
	}
}

func (t *lockTable) release(key string) {
	t.mu.Lock()
	sl := t.slots[key]
	t.mu.Unlock()
	if sl == nil {
		return
	}
	<-sl.ch
	t.unref(key, sl)
}

