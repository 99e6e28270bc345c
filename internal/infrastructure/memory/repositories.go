package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/obra-stock/internal/domain"
	"github.com/jhoicas/obra-stock/internal/domain/entity"
	"github.com/jhoicas/obra-stock/internal/domain/inventory"
	"github.com/jhoicas/obra-stock/internal/domain/repository"
)

var (
	_ repository.ItemRepository          = (*ItemRepo)(nil)
	_ repository.LocationRepository      = (*LocationRepo)(nil)
	_ repository.StockPositionRepository = (*StockPositionRepo)(nil)
	_ repository.MovementRepository      = (*MovementRepo)(nil)
)

// ItemRepo implementa repository.ItemRepository en memoria.
type ItemRepo struct {
	s  *Store
	tx *tx
}

func (r *ItemRepo) Create(ctx context.Context, item *entity.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.items[item.ID]; ok {
		return fmt.Errorf("%w: ítem %s", domain.ErrDuplicate, item.ID)
	}
	r.s.items[item.ID] = cloneItem(item)
	return nil
}

func (r *ItemRepo) GetByID(ctx context.Context, id string) (*entity.Item, error) {
	r.s.mu.RLock()
	it := r.s.items[id]
	r.s.mu.RUnlock()
	if r.tx != nil && it != nil {
		if c, ok := r.tx.costs[id]; ok {
			return c.applyTo(it), nil
		}
	}
	return cloneItem(it), nil
}

func (r *ItemRepo) GetForUpdate(ctx context.Context, id string) (*entity.Item, error) {
	if r.tx != nil {
		if err := r.tx.lock(itemKey(id)); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

// Update conserva el costo promedio guardado. Espera el bloqueo del ítem para no
// intercalarse con una recepción en curso.
func (r *ItemRepo) Update(ctx context.Context, item *entity.Item) error {
	key := itemKey(item.ID)
	if err := r.s.locks.acquire(ctx, key, r.s.lockTimeout); err != nil {
		return err
	}
	defer r.s.locks.release(key)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.items[item.ID]
	if !ok {
		return fmt.Errorf("%w: ítem %s", domain.ErrNotFound, item.ID)
	}
	next := cloneItem(item)
	next.AverageCost = cur.AverageCost
	next.CreatedAt = cur.CreatedAt
	r.s.items[item.ID] = next
	return nil
}

// UpdateAverageCost dentro de una transacción solo registra el nuevo costo; el resto del
// ítem se toma del estado vigente al confirmar.
func (r *ItemRepo) UpdateAverageCost(ctx context.Context, id string, cost decimal.Decimal) error {
	now := time.Now().UTC()
	if r.tx != nil {
		r.s.mu.RLock()
		_, ok := r.s.items[id]
		r.s.mu.RUnlock()
		if !ok {
			return fmt.Errorf("%w: ítem %s", domain.ErrNotFound, id)
		}
		r.tx.costs[id] = stagedCost{averageCost: cost, updatedAt: now}
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.items[id]
	if !ok {
		return fmt.Errorf("%w: ítem %s", domain.ErrNotFound, id)
	}
	r.s.items[id] = stagedCost{averageCost: cost, updatedAt: now}.applyTo(it)
	return nil
}

// List ordena por fecha de creación descendente.
func (r *ItemRepo) List(ctx context.Context, limit, offset int) ([]*entity.Item, error) {
	r.s.mu.RLock()
	list := make([]*entity.Item, 0, len(r.s.items))
	for _, it := range r.s.items {
		list = append(list, cloneItem(it))
	}
	r.s.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return paginate(list, limit, offset), nil
}

// LocationRepo implementa repository.LocationRepository en memoria.
type LocationRepo struct {
	s *Store
}

func (r *LocationRepo) Create(ctx context.Context, location *entity.Location) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.locations[location.ID]; ok {
		return fmt.Errorf("%w: ubicación %s", domain.ErrDuplicate, location.ID)
	}
	r.s.locations[location.ID] = cloneLocation(location)
	return nil
}

func (r *LocationRepo) GetByID(ctx context.Context, id string) (*entity.Location, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return cloneLocation(r.s.locations[id]), nil
}

func (r *LocationRepo) List(ctx context.Context, limit, offset int) ([]*entity.Location, error) {
	r.s.mu.RLock()
	list := make([]*entity.Location, 0, len(r.s.locations))
	for _, l := range r.s.locations {
		list = append(list, cloneLocation(l))
	}
	r.s.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return paginate(list, limit, offset), nil
}

// StockPositionRepo implementa repository.StockPositionRepository en memoria.
type StockPositionRepo struct {
	s  *Store
	tx *tx
}

func (r *StockPositionRepo) lookup(key inventory.PositionKey) *inventory.StockPosition {
	if r.tx != nil {
		if p, ok := r.tx.positions[key]; ok {
			return p
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.positions[key]
}

func (r *StockPositionRepo) Get(ctx context.Context, itemID, locationID string) (*inventory.StockPosition, error) {
	p := r.lookup(inventory.PositionKey{ItemID: itemID, LocationID: locationID})
	if p == nil {
		return nil, nil
	}
	return p.Clone(), nil
}

func (r *StockPositionRepo) GetForUpdate(ctx context.Context, itemID, locationID string) (*inventory.StockPosition, error) {
	key := inventory.PositionKey{ItemID: itemID, LocationID: locationID}
	if r.tx != nil {
		if err := r.tx.lock(positionKey(key)); err != nil {
			return nil, err
		}
	}
	if p := r.lookup(key); p != nil {
		return p.Clone(), nil
	}
	return inventory.NewStockPosition(itemID, locationID), nil
}

func (r *StockPositionRepo) ListForUpdateByItem(ctx context.Context, itemID string) ([]*inventory.StockPosition, error) {
	list, err := r.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if r.tx == nil {
		return list, nil
	}
	for _, p := range list {
		if err := r.tx.lock(positionKey(p.Key())); err != nil {
			return nil, err
		}
	}
	// relee tras bloquear: otra transacción pudo confirmar mientras esperábamos
	locked := make([]*inventory.StockPosition, 0, len(list))
	for _, p := range list {
		if cur := r.lookup(p.Key()); cur != nil {
			locked = append(locked, cur.Clone())
		}
	}
	return locked, nil
}

func (r *StockPositionRepo) Save(ctx context.Context, position *inventory.StockPosition) error {
	if r.tx != nil {
		r.tx.positions[position.Key()] = stored(position)
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.positions[position.Key()] = stored(position)
	return nil
}

func (r *StockPositionRepo) snapshot() map[inventory.PositionKey]*inventory.StockPosition {
	r.s.mu.RLock()
	out := make(map[inventory.PositionKey]*inventory.StockPosition, len(r.s.positions))
	for k, p := range r.s.positions {
		out[k] = p
	}
	r.s.mu.RUnlock()
	if r.tx != nil {
		for k, p := range r.tx.positions {
			out[k] = p
		}
	}
	return out
}

func (r *StockPositionRepo) ListByItem(ctx context.Context, itemID string) ([]*inventory.StockPosition, error) {
	var list []*inventory.StockPosition
	for k, p := range r.snapshot() {
		if k.ItemID == itemID {
			list = append(list, p.Clone())
		}
	}
	sortPositions(list)
	return list, nil
}

func (r *StockPositionRepo) ListAll(ctx context.Context) ([]*inventory.StockPosition, error) {
	var list []*inventory.StockPosition
	for _, p := range r.snapshot() {
		list = append(list, p.Clone())
	}
	sortPositions(list)
	return list, nil
}

// SetThresholdOverride crea la posición en cero si no existía.
func (r *StockPositionRepo) SetThresholdOverride(ctx context.Context, itemID, locationID string, threshold *decimal.Decimal) error {
	key := inventory.PositionKey{ItemID: itemID, LocationID: locationID}
	if err := r.s.locks.acquire(ctx, positionKey(key), r.s.lockTimeout); err != nil {
		return err
	}
	defer r.s.locks.release(positionKey(key))

	var override *decimal.Decimal
	if threshold != nil {
		v := *threshold
		override = &v
	}
	now := time.Now().UTC()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	qty := decimal.Zero
	if cur, ok := r.s.positions[key]; ok {
		qty = cur.Quantity()
	}
	r.s.positions[key] = inventory.RestoreStockPosition(itemID, locationID, qty, override, now)
	return nil
}

// MovementRepo implementa repository.MovementRepository en memoria.
type MovementRepo struct {
	s  *Store
	tx *tx
}

func (r *MovementRepo) lookup(id string) *entity.Movement {
	if r.tx != nil {
		if m, ok := r.tx.movements[id]; ok {
			return m
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.movements[id]
}

func (r *MovementRepo) Create(ctx context.Context, movement *entity.Movement) error {
	if r.lookup(movement.ID) != nil {
		return fmt.Errorf("%w: movimiento %s", domain.ErrDuplicate, movement.ID)
	}
	if r.tx != nil {
		r.tx.movements[movement.ID] = cloneMovement(movement)
		r.tx.created[movement.ID] = struct{}{}
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.movements[movement.ID] = cloneMovement(movement)
	return nil
}

func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	return cloneMovement(r.lookup(id)), nil
}

func (r *MovementRepo) GetForUpdate(ctx context.Context, id string) (*entity.Movement, error) {
	if r.tx != nil {
		if err := r.tx.lock(movementKey(id)); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

func (r *MovementRepo) MarkApplied(ctx context.Context, movement *entity.Movement, appliedAt time.Time, totalCost decimal.Decimal) error {
	cur := r.lookup(movement.ID)
	if cur == nil {
		return fmt.Errorf("%w: movimiento %s", domain.ErrNotFound, movement.ID)
	}
	if cur.Applied {
		return fmt.Errorf("%w: movimiento %s ya aplicado", domain.ErrConflict, movement.ID)
	}

	at := appliedAt
	movement.Applied = true
	movement.AppliedAt = &at
	movement.Seq = r.s.seq.Add(1)
	movement.TotalCost = totalCost

	if r.tx != nil {
		r.tx.movements[movement.ID] = cloneMovement(movement)
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.movements[movement.ID] = cloneMovement(movement)
	return nil
}

// DeleteUnapplied toma el bloqueo del asiento para no competir con una aplicación en curso.
func (r *MovementRepo) DeleteUnapplied(ctx context.Context, id string) (bool, error) {
	if r.tx != nil {
		if err := r.tx.lock(movementKey(id)); err != nil {
			return false, err
		}
	} else {
		if err := r.s.locks.acquire(ctx, movementKey(id), r.s.lockTimeout); err != nil {
			return false, err
		}
		defer r.s.locks.release(movementKey(id))
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.movements[id]
	if !ok || m.Applied {
		return false, nil
	}
	delete(r.s.movements, id)
	return true, nil
}

func (r *MovementRepo) all() []*entity.Movement {
	r.s.mu.RLock()
	merged := make(map[string]*entity.Movement, len(r.s.movements))
	for id, m := range r.s.movements {
		merged[id] = m
	}
	r.s.mu.RUnlock()
	if r.tx != nil {
		for id, m := range r.tx.movements {
			merged[id] = m
		}
	}
	list := make([]*entity.Movement, 0, len(merged))
	for _, m := range merged {
		list = append(list, cloneMovement(m))
	}
	return list
}

// List devuelve primero los más recientes.
func (r *MovementRepo) List(ctx context.Context, filter repository.MovementFilter) ([]*entity.Movement, error) {
	var list []*entity.Movement
	for _, m := range r.all() {
		if filter.ItemID != "" && m.ItemID != filter.ItemID {
			continue
		}
		if filter.LocationID != "" && m.FromLocationID != filter.LocationID && m.ToLocationID != filter.LocationID {
			continue
		}
		if filter.From != nil && m.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && m.CreatedAt.After(*filter.To) {
			continue
		}
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return paginate(list, filter.Limit, filter.Offset), nil
}

func (r *MovementRepo) ListAppliedByItem(ctx context.Context, itemID string) ([]*entity.Movement, error) {
	var list []*entity.Movement
	for _, m := range r.all() {
		if m.Applied && m.ItemID == itemID {
			list = append(list, m)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Seq < list[j].Seq })
	return list, nil
}
