// Package memory implementa los puertos del ledger en memoria, con bloqueo por posición
// y transacciones con staging. Útil para pruebas y para correr la API sin PostgreSQL.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	appinventory "github.com/jhoicas/obra-stock/internal/application/inventory"
	"github.com/jhoicas/obra-stock/internal/domain/entity"
	"github.com/jhoicas/obra-stock/internal/domain/inventory"
	"github.com/jhoicas/obra-stock/internal/domain/repository"
)

var _ appinventory.TxRunner = (*TxRunner)(nil)

// Store estado compartido del almacén en memoria.
type Store struct {
	mu          sync.RWMutex
	items       map[string]*entity.Item
	locations   map[string]*entity.Location
	positions   map[inventory.PositionKey]*inventory.StockPosition
	movements   map[string]*entity.Movement
	seq         atomic.Int64
	locks       *lockTable
	lockTimeout time.Duration
}

// NewStore crea un almacén vacío; lockTimeout acota la espera por bloqueos.
func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &Store{
		items:       make(map[string]*entity.Item),
		locations:   make(map[string]*entity.Location),
		positions:   make(map[inventory.PositionKey]*inventory.StockPosition),
		movements:   make(map[string]*entity.Movement),
		locks:       newLockTable(),
		lockTimeout: lockTimeout,
	}
}

// Items repositorio de ítems fuera de transacción.
func (s *Store) Items() *ItemRepo { return &ItemRepo{s: s} }

func (s *Store) Locations() *LocationRepo { return &LocationRepo{s: s} }

func (s *Store) Positions() *StockPositionRepo { return &StockPositionRepo{s: s} }

func (s *Store) Movements() *MovementRepo { return &MovementRepo{s: s} }

// TxRunner runner transaccional para el ledger.
func (s *Store) TxRunner() *TxRunner { return &TxRunner{s: s} }

// TxRunner ejecuta callbacks con repositorios atados a una transacción en memoria.
type TxRunner struct {
	s *Store
}

// Run bloquea lo que pidan los repositorios, acumula escrituras y las confirma solo si fn no falla.
func (r *TxRunner) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	stockRepo repository.StockPositionRepository,
	itemRepo repository.ItemRepository,
) error) error {
	t := newTx(ctx, r.s)
	defer t.releaseAll()

	if err := fn(
		&MovementRepo{s: r.s, tx: t},
		&StockPositionRepo{s: r.s, tx: t},
		&ItemRepo{s: r.s, tx: t},
	); err != nil {
		return err
	}
	t.commit()
	return nil
}

// tx bloqueos tomados y escrituras pendientes de una transacción.
type tx struct {
	ctx       context.Context
	s         *Store
	held      []string
	heldSet   map[string]struct{}
	costs     map[string]stagedCost
	positions map[inventory.PositionKey]*inventory.StockPosition
	movements map[string]*entity.Movement
	created   map[string]struct{}
}

// stagedCost única escritura de ítem dentro de una transacción.
type stagedCost struct {
	averageCost decimal.Decimal
	updatedAt   time.Time
}

func (c stagedCost) applyTo(it *entity.Item) *entity.Item {
	next := cloneItem(it)
	next.AverageCost = c.averageCost
	next.UpdatedAt = c.updatedAt
	return next
}

func newTx(ctx context.Context, s *Store) *tx {
	return &tx{
		ctx:       ctx,
		s:         s,
		heldSet:   make(map[string]struct{}),
		costs:     make(map[string]stagedCost),
		positions: make(map[inventory.PositionKey]*inventory.StockPosition),
		movements: make(map[string]*entity.Movement),
		created:   make(map[string]struct{}),
	}
}

// lock es reentrante dentro de la misma transacción.
func (t *tx) lock(key string) error {
	if _, ok := t.heldSet[key]; ok {
		return nil
	}
	if err := t.s.locks.acquire(t.ctx, key, t.s.lockTimeout); err != nil {
		return err
	}
	t.heldSet[key] = struct{}{}
	t.held = append(t.held, key)
	return nil
}

func (t *tx) releaseAll() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.s.locks.release(t.held[i])
	}
	t.held = nil
	t.heldSet = make(map[string]struct{})
}

func (t *tx) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for id, c := range t.costs {
		if cur, ok := t.s.items[id]; ok {
			t.s.items[id] = c.applyTo(cur)
		}
	}
	for k, p := range t.positions {
		t.s.positions[k] = p
	}
	for id, m := range t.movements {
		_, isNew := t.created[id]
		if _, exists := t.s.movements[id]; exists || isNew {
			t.s.movements[id] = m
		}
	}
}

func itemKey(id string) string                   { return "item:" + id }
func movementKey(id string) string               { return "mov:" + id }
func positionKey(k inventory.PositionKey) string { return "pos:" + k.ItemID + "/" + k.LocationID }

func cloneItem(it *entity.Item) *entity.Item {
	if it == nil {
		return nil
	}
	c := *it
	if it.LowStockThreshold != nil {
		v := *it.LowStockThreshold
		c.LowStockThreshold = &v
	}
	return &c
}

func cloneLocation(l *entity.Location) *entity.Location {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

func cloneMovement(m *entity.Movement) *entity.Movement {
	if m == nil {
		return nil
	}
	c := *m
	if m.UnitCost != nil {
		v := *m.UnitCost
		c.UnitCost = &v
	}
	if m.AppliedAt != nil {
		v := *m.AppliedAt
		c.AppliedAt = &v
	}
	return &c
}

// stored copia independiente de una posición para guardar en el almacén.
func stored(p *inventory.StockPosition) *inventory.StockPosition {
	var override *decimal.Decimal
	if p.ThresholdOverride() != nil {
		v := *p.ThresholdOverride()
		override = &v
	}
	return inventory.RestoreStockPosition(p.ItemID(), p.LocationID(), p.Quantity(), override, p.UpdatedAt())
}

func paginate[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

func sortPositions(list []*inventory.StockPosition) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].Key().Less(list[j].Key())
	})
}
