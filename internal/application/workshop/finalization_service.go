package workshop

import (
	"context"
	"errors"
	"time"

	"github.com/bikeshop/backend/internal/domain/inventory"
	"github.com/bikeshop/backend/internal/domain/ledger"
	"github.com/bikeshop/backend/internal/domain/shared"
	"github.com/bikeshop/backend/internal/domain/workshop"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FinalizationService is the transactional use case that turns a repair order
// into a fiscal invoice: it decrements the consumed stock, mints the next
// ledger entry and freezes the order, all inside one unit of work. The flow is
// an explicit saga so a failure in any step unwinds the in-memory state of the
// steps before it; the database transaction is the persistence backstop.
type FinalizationService struct {
	uow         UnitOfWork
	stockLedger *inventory.StockLedgerService
	publisher   shared.EventPublisher
	series      string
	taxRate     decimal.Decimal
	logger      *zap.Logger
}

// NewFinalizationService creates a new FinalizationService. series and taxRate
// come from configuration; taxRate is a percentage, e.g. 21 for the Spanish
// general IVA rate.
func NewFinalizationService(
	uow UnitOfWork,
	stockLedger *inventory.StockLedgerService,
	publisher shared.EventPublisher,
	series string,
	taxRate decimal.Decimal,
	logger *zap.Logger,
) *FinalizationService {
	return &FinalizationService{
		uow:         uow,
		stockLedger: stockLedger,
		publisher:   publisher,
		series:      series,
		taxRate:     taxRate,
		logger:      logger,
	}
}

// Finalize executes the finalization flow for one order.
//
// Inside a single transaction it loads the order and the affected stock items
// row-locked, validates the order state, applies the grouped stock decrement,
// appends the invoice to the hash chain and transitions the order to
// FINALIZED. A second call for an already finalized order fails with
// ALREADY_FINALIZED and changes nothing.
func (s *FinalizationService) Finalize(ctx context.Context, orderID uuid.UUID, req FinalizeOrderRequest) (*FinalizeOrderResult, error) {
	var (
		result *FinalizeOrderResult
		events []shared.DomainEvent
	)

	err := s.uow.Execute(ctx, func(ctx context.Context, repos Repositories) error {
		order, err := repos.Orders.FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("ORDER_NOT_FOUND", "Repair order not found: "+orderID.String())
		}
		if err != nil {
			return err
		}

		if order.IsFinalized() {
			return shared.NewDomainError("ALREADY_FINALIZED", "Order "+order.OrderNumber+" has already been finalized")
		}
		if !order.CanFinalize() {
			return &workshop.InvalidStateTransitionError{From: order.Status, To: workshop.OrderStatusFinalized}
		}

		requests, forced := splitStockRequests(order.StockTrackedItems(), req.ForceItemIDs)

		items, err := s.loadStockItems(ctx, repos, requests)
		if err != nil {
			return err
		}

		entry, err := s.runFinalizationSaga(ctx, repos, order, items, requests, forced)
		if err != nil {
			return err
		}

		result = newFinalizeOrderResult(order, entry)
		events = collectEvents(order, entry, items)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, events)

	s.logger.Info("order finalized",
		zap.String("order_id", result.OrderID.String()),
		zap.String("invoice_number", result.InvoiceNumber),
		zap.String("total", result.TotalAmount))

	return result, nil
}

// runFinalizationSaga builds and runs the ordered steps of the flow. Each step
// carries the compensation that undoes its in-memory effect, replayed in
// reverse when a later step fails.
func (s *FinalizationService) runFinalizationSaga(
	ctx context.Context,
	repos Repositories,
	order *workshop.RepairOrder,
	items map[uuid.UUID]*inventory.StockItem,
	requests []inventory.StockRequest,
	forced []inventory.StockRequest,
) (*ledger.InvoiceLedgerEntry, error) {
	var entry *ledger.InvoiceLedgerEntry

	sg := newSaga(s.logger)

	sg.addStep("decrement-stock",
		func(ctx context.Context) error {
			if err := s.stockLedger.Decrement(items, requests); err != nil {
				return err
			}
			dirty := make([]*inventory.StockItem, 0, len(requests))
			for _, r := range requests {
				dirty = append(dirty, items[r.StockItemID])
			}
			return repos.StockItems.SaveAll(ctx, dirty)
		},
		func(ctx context.Context) error {
			return s.stockLedger.Increment(items, requests)
		})

	sg.addStep("record-movements",
		func(ctx context.Context) error {
			return repos.StockMovements.SaveAll(ctx, buildMovements(order, requests, forced))
		},
		nil)

	sg.addStep("append-ledger-entry",
		func(ctx context.Context) error {
			candidate := ledger.EntryCandidate{
				DocumentType: ledger.DocumentTypeInvoice,
				Series:       s.series,
				FiscalYear:   time.Now().UTC().Year(),
				OrderID:      &order.ID,
				CustomerID:   order.CustomerID,
				IssueDate:    time.Now().UTC(),
				TaxBase:      workshop.TotalOf(order.Items),
				TaxRate:      s.taxRate,
			}
			var err error
			entry, err = repos.Ledger.Append(ctx, candidate)
			return err
		},
		nil)

	sg.addStep("finalize-order",
		func(ctx context.Context) error {
			if err := order.Finalize(entry.ID); err != nil {
				return err
			}
			return repos.Orders.SaveWithLock(ctx, order)
		},
		nil)

	if err := sg.run(ctx); err != nil {
		return nil, unwrapSagaError(err)
	}
	return entry, nil
}

// loadStockItems row-locks every stock item the order consumes. Locking all
// ids in one query, ordered by the repository, avoids lock inversion between
// concurrent finalizations that share items.
func (s *FinalizationService) loadStockItems(ctx context.Context, repos Repositories, requests []inventory.StockRequest) (map[uuid.UUID]*inventory.StockItem, error) {
	if len(requests) == 0 {
		return map[uuid.UUID]*inventory.StockItem{}, nil
	}
	ids := make([]uuid.UUID, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.StockItemID)
	}
	return repos.StockItems.FindByIDsForUpdate(ctx, ids)
}

func (s *FinalizationService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	for _, evt := range events {
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("event publish failed",
				zap.String("event_type", evt.EventType()),
				zap.Error(err))
		}
	}
}

// splitStockRequests partitions the order's tracked lines into requests that
// will be decremented and forced lines whose shortfall the caller overrode.
// Quantities for the same stock item are merged.
func splitStockRequests(items []workshop.OrderLineItem, forceIDs []uuid.UUID) (requests, forced []inventory.StockRequest) {
	forcedSet := make(map[uuid.UUID]bool, len(forceIDs))
	for _, id := range forceIDs {
		forcedSet[id] = true
	}

	merged := make(map[uuid.UUID]int64)
	mergedForced := make(map[uuid.UUID]int64)
	var orderNormal, orderForced []uuid.UUID

	for _, item := range items {
		id := *item.StockItemID
		if forcedSet[id] {
			if _, seen := mergedForced[id]; !seen {
				orderForced = append(orderForced, id)
			}
			mergedForced[id] += item.Quantity
			continue
		}
		if _, seen := merged[id]; !seen {
			orderNormal = append(orderNormal, id)
		}
		merged[id] += item.Quantity
	}

	for _, id := range orderNormal {
		requests = append(requests, inventory.StockRequest{StockItemID: id, Quantity: merged[id]})
	}
	for _, id := range orderForced {
		forced = append(forced, inventory.StockRequest{StockItemID: id, Quantity: mergedForced[id]})
	}
	return requests, forced
}

// buildMovements writes one audit row per consumed item plus one UNFULFILLED
// row per forced item
func buildMovements(order *workshop.RepairOrder, requests, forced []inventory.StockRequest) []*inventory.StockMovement {
	movements := make([]*inventory.StockMovement, 0, len(requests)+len(forced))
	for _, r := range requests {
		movements = append(movements, inventory.NewStockMovement(
			r.StockItemID, &order.ID, inventory.MovementTypeDecrement, r.Quantity,
			"order "+order.OrderNumber+" finalized"))
	}
	for _, r := range forced {
		movements = append(movements, inventory.NewStockMovement(
			r.StockItemID, &order.ID, inventory.MovementTypeUnfulfilled, r.Quantity,
			"shortfall overridden on order "+order.OrderNumber))
	}
	return movements
}

// collectEvents drains the pending domain events of every aggregate the flow
// touched, in the order they were raised
func collectEvents(order *workshop.RepairOrder, entry *ledger.InvoiceLedgerEntry, items map[uuid.UUID]*inventory.StockItem) []shared.DomainEvent {
	var events []shared.DomainEvent
	for _, item := range items {
		events = append(events, item.GetDomainEvents()...)
		item.ClearDomainEvents()
	}
	events = append(events, entry.GetDomainEvents()...)
	entry.ClearDomainEvents()
	events = append(events, order.GetDomainEvents()...)
	order.ClearDomainEvents()
	return events
}

// unwrapSagaError strips the saga-step wrapper so callers and the HTTP layer
// see the typed domain error
func unwrapSagaError(err error) error {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var stockErr *inventory.InsufficientStockError
	if errors.As(err, &stockErr) {
		return stockErr
	}
	var stateErr *workshop.InvalidStateTransitionError
	if errors.As(err, &stateErr) {
		return stateErr
	}
	return err
}
