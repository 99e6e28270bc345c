package inventory

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/obra-stock/internal/domain"
	"github.com/jhoicas/obra-stock/internal/domain/entity"
)

// Lot es la capa de costo creada por un RECEIVE con costo unitario.
type Lot struct {
	MovementID string
	Quantity   decimal.Decimal
	Remaining  decimal.Decimal
	UnitCost   decimal.Decimal
	ReceivedAt time.Time
}

// LotConsumption detalle de cuánto se tomó de un lote al costear una cantidad.
type LotConsumption struct {
	MovementID string
	UnitCost   decimal.Decimal
	Consumed   decimal.Decimal
	Remaining  decimal.Decimal // lo que quedaría en el lote después de consumir
}

// CostResult resultado de costear una cantidad bajo la política del ítem.
// Degraded indica que parte de la cantidad se costeó al promedio por falta de lotes.
type CostResult struct {
	Method    entity.ValuationMethod
	Quantity  decimal.Decimal
	TotalCost decimal.Decimal
	UnitCost  decimal.Decimal
	LotsCost  decimal.Decimal
	Shortfall decimal.Decimal
	Degraded  bool
	Lots      []LotConsumption
}

// costPolicy es el conjunto cerrado de políticas de valuación.
type costPolicy interface {
	method() entity.ValuationMethod
	newestFirst() bool
	cost(item *entity.Item, lots []Lot, qty decimal.Decimal) CostResult
}

type averagePolicy struct{}
type fifoPolicy struct{}
type lifoPolicy struct{}

func (averagePolicy) method() entity.ValuationMethod { return entity.ValuationAVG }
func (fifoPolicy) method() entity.ValuationMethod    { return entity.ValuationFIFO }
func (lifoPolicy) method() entity.ValuationMethod    { return entity.ValuationLIFO }

func (averagePolicy) newestFirst() bool { return false }
func (fifoPolicy) newestFirst() bool    { return false }
func (lifoPolicy) newestFirst() bool    { return true }

func (averagePolicy) cost(item *entity.Item, _ []Lot, qty decimal.Decimal) CostResult {
	total := qty.Mul(item.AverageCost)
	return CostResult{
		Method:    entity.ValuationAVG,
		Quantity:  qty,
		TotalCost: total,
		UnitCost:  item.AverageCost,
		Shortfall: decimal.Zero,
		LotsCost:  decimal.Zero,
	}
}

func (p fifoPolicy) cost(item *entity.Item, lots []Lot, qty decimal.Decimal) CostResult {
	return walkLots(p.method(), item, lots, qty, false)
}

func (p lifoPolicy) cost(item *entity.Item, lots []Lot, qty decimal.Decimal) CostResult {
	return walkLots(p.method(), item, lots, qty, true)
}

func policyFor(m entity.ValuationMethod) (costPolicy, error) {
	switch m {
	case entity.ValuationAVG:
		return averagePolicy{}, nil
	case entity.ValuationFIFO:
		return fifoPolicy{}, nil
	case entity.ValuationLIFO:
		return lifoPolicy{}, nil
	}
	return nil, fmt.Errorf("%w: método de valuación %q", domain.ErrInvalidInput, m)
}

// walkLots recorre los lotes (antiguos primero, o recientes primero) consumiendo Remaining.
// El faltante se costea al promedio actual del ítem.
func walkLots(method entity.ValuationMethod, item *entity.Item, lots []Lot, qty decimal.Decimal, newestFirst bool) CostResult {
	res := CostResult{Method: method, Quantity: qty, LotsCost: decimal.Zero}
	remaining := qty
	for i := range lots {
		if !remaining.IsPositive() {
			break
		}
		lot := lots[i]
		if newestFirst {
			lot = lots[len(lots)-1-i]
		}
		if !lot.Remaining.IsPositive() {
			continue
		}
		used := decimal.Min(remaining, lot.Remaining)
		res.LotsCost = res.LotsCost.Add(used.Mul(lot.UnitCost))
		res.Lots = append(res.Lots, LotConsumption{
			MovementID: lot.MovementID,
			UnitCost:   lot.UnitCost,
			Consumed:   used,
			Remaining:  lot.Remaining.Sub(used),
		})
		remaining = remaining.Sub(used)
	}

	res.Shortfall = remaining
	res.TotalCost = res.LotsCost
	if remaining.IsPositive() {
		res.Degraded = true
		res.TotalCost = res.TotalCost.Add(remaining.Mul(item.AverageCost))
	}
	if qty.IsPositive() {
		res.UnitCost = res.TotalCost.Div(qty)
	}
	return res
}

// FIFOCost costea qty consumiendo los lotes del más antiguo al más reciente.
func FIFOCost(item *entity.Item, lots []Lot, qty decimal.Decimal) CostResult {
	return fifoPolicy{}.cost(item, lots, qty)
}

// LIFOCost costea qty consumiendo los lotes del más reciente al más antiguo.
func LIFOCost(item *entity.Item, lots []Lot, qty decimal.Decimal) CostResult {
	return lifoPolicy{}.cost(item, lots, qty)
}

// BuildLots reconstruye los lotes vigentes reproduciendo el historial aplicado del ítem.
// Las salidas (ISSUE, ADJUST negativo) consumen lotes en el orden de la política;
// los traslados no consumen. Se devuelven en orden de recepción.
func BuildLots(method entity.ValuationMethod, history []*entity.Movement) []Lot {
	newestFirst := method == entity.ValuationLIFO

	ordered := make([]*entity.Movement, 0, len(history))
	for _, m := range history {
		if m != nil && m.Applied {
			ordered = append(ordered, m)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Seq != ordered[j].Seq {
			return ordered[i].Seq < ordered[j].Seq
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	var lots []Lot
	for _, m := range ordered {
		switch {
		case m.Type == entity.MovementReceive && m.UnitCost != nil:
			receivedAt := m.CreatedAt
			if m.AppliedAt != nil {
				receivedAt = *m.AppliedAt
			}
			lots = append(lots, Lot{
				MovementID: m.ID,
				Quantity:   m.Quantity,
				Remaining:  m.Quantity,
				UnitCost:   *m.UnitCost,
				ReceivedAt: receivedAt,
			})
		case m.IsOutbound():
			consumeLots(lots, m.Quantity, newestFirst)
		}
	}

	out := lots[:0]
	for _, l := range lots {
		if l.Remaining.IsPositive() {
			out = append(out, l)
		}
	}
	return out
}

func consumeLots(lots []Lot, qty decimal.Decimal, newestFirst bool) {
	remaining := qty
	for i := range lots {
		if !remaining.IsPositive() {
			return
		}
		idx := i
		if newestFirst {
			idx = len(lots) - 1 - i
		}
		used := decimal.Min(remaining, lots[idx].Remaining)
		if !used.IsPositive() {
			continue
		}
		lots[idx].Remaining = lots[idx].Remaining.Sub(used)
		remaining = remaining.Sub(used)
	}
}

// CostForQuantity costea qty según la política del ítem usando su historial aplicado.
// Cantidad cero es una consulta válida con costo cero.
func CostForQuantity(item *entity.Item, history []*entity.Movement, qty decimal.Decimal) (CostResult, error) {
	if item == nil {
		return CostResult{}, domain.ErrNotFound
	}
	if qty.IsNegative() {
		return CostResult{}, fmt.Errorf("%w: cantidad negativa", domain.ErrInvalidInput)
	}
	policy, err := policyFor(item.ValuationMethod)
	if err != nil {
		return CostResult{}, err
	}
	if qty.IsZero() {
		return CostResult{
			Method:    policy.method(),
			Quantity:  decimal.Zero,
			TotalCost: decimal.Zero,
			UnitCost:  decimal.Zero,
			LotsCost:  decimal.Zero,
			Shortfall: decimal.Zero,
		}, nil
	}
	var lots []Lot
	if item.ValuationMethod.UsesLots() {
		lots = BuildLots(item.ValuationMethod, history)
	}
	return policy.cost(item, lots, qty), nil
}
