package workshop

import (
	"testing"

	"github.com/bikeshop/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestOrder(t *testing.T) *RepairOrder {
	order, err := NewRepairOrder("OR-2026-00001", uuid.New(), uuid.New())
	require.NoError(t, err)
	return order
}

func orderInRepair(t *testing.T) *RepairOrder {
	order := createTestOrder(t)
	require.NoError(t, order.TransitionTo(OrderStatusDiagnosis))
	require.NoError(t, order.TransitionTo(OrderStatusInRepair))
	return order
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     OrderStatus
		to       OrderStatus
		canTrans bool
	}{
		{OrderStatusReceived, OrderStatusDiagnosis, true},
		{OrderStatusReceived, OrderStatusInRepair, false},
		{OrderStatusReceived, OrderStatusFinalized, false},
		{OrderStatusDiagnosis, OrderStatusInRepair, true},
		{OrderStatusDiagnosis, OrderStatusFinalized, false},
		{OrderStatusInRepair, OrderStatusAwaitingParts, true},
		{OrderStatusInRepair, OrderStatusFinalized, true},
		{OrderStatusInRepair, OrderStatusDelivered, false},
		{OrderStatusAwaitingParts, OrderStatusInRepair, true},
		{OrderStatusAwaitingParts, OrderStatusFinalized, true},
		{OrderStatusAwaitingParts, OrderStatusDiagnosis, false},
		{OrderStatusFinalized, OrderStatusNotifyCustomer, true},
		{OrderStatusFinalized, OrderStatusInRepair, false},
		{OrderStatusFinalized, OrderStatusDelivered, false},
		{OrderStatusNotifyCustomer, OrderStatusDelivered, true},
		{OrderStatusDelivered, OrderStatusReceived, false},
		{OrderStatusDelivered, OrderStatusNotifyCustomer, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.canTrans, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestRepairOrder_TransitionTo(t *testing.T) {
	t.Run("legal transition", func(t *testing.T) {
		order := createTestOrder(t)
		require.NoError(t, order.TransitionTo(OrderStatusDiagnosis))
		assert.Equal(t, OrderStatusDiagnosis, order.Status)
	})

	t.Run("illegal transition leaves state untouched", func(t *testing.T) {
		order := createTestOrder(t)
		err := order.TransitionTo(OrderStatusDelivered)

		var transErr *InvalidStateTransitionError
		require.ErrorAs(t, err, &transErr)
		assert.Equal(t, OrderStatusReceived, transErr.From)
		assert.Equal(t, OrderStatusDelivered, transErr.To)
		assert.Equal(t, OrderStatusReceived, order.Status)
	})

	t.Run("awaiting parts may return to repair", func(t *testing.T) {
		order := orderInRepair(t)
		require.NoError(t, order.TransitionTo(OrderStatusAwaitingParts))
		require.NoError(t, order.TransitionTo(OrderStatusInRepair))
		assert.Equal(t, OrderStatusInRepair, order.Status)
	})
}

func TestRepairOrder_Items(t *testing.T) {
	t.Run("add and total", func(t *testing.T) {
		order := orderInRepair(t)
		stockID := uuid.New()
		_, err := order.AddItem(&stockID, "Brake pads", 2, valueobject.NewMoneyEURFromFloat(12.50))
		require.NoError(t, err)
		_, err = order.AddItem(nil, "Labour", 1, valueobject.NewMoneyEURFromFloat(40))
		require.NoError(t, err)

		assert.Equal(t, "65.00", order.Total().StringFixed(2))
		assert.Len(t, order.StockTrackedItems(), 1)
	})

	t.Run("total recomputes after edits", func(t *testing.T) {
		order := orderInRepair(t)
		item, err := order.AddItem(nil, "Labour", 1, valueobject.NewMoneyEURFromFloat(40))
		require.NoError(t, err)

		require.NoError(t, order.Items[0].UpdateQuantity(2))
		assert.Equal(t, "80.00", order.Total().StringFixed(2))
		_ = item

		require.NoError(t, order.RemoveItem(order.Items[0].ID))
		assert.True(t, order.Total().IsZero())
	})

	t.Run("items frozen once finalized", func(t *testing.T) {
		order := orderInRepair(t)
		_, err := order.AddItem(nil, "Labour", 1, valueobject.NewMoneyEURFromFloat(40))
		require.NoError(t, err)
		require.NoError(t, order.Finalize(uuid.New()))

		_, err = order.AddItem(nil, "Extra", 1, valueobject.NewMoneyEURFromFloat(5))
		assert.Error(t, err)
		assert.Error(t, order.RemoveItem(order.Items[0].ID))
	})

	t.Run("invalid line item", func(t *testing.T) {
		order := orderInRepair(t)
		_, err := order.AddItem(nil, "", 1, valueobject.ZeroEUR())
		assert.Error(t, err)
		_, err = order.AddItem(nil, "Labour", 0, valueobject.ZeroEUR())
		assert.Error(t, err)
		_, err = order.AddItem(nil, "Labour", 1, valueobject.NewMoneyEURFromFloat(-1))
		assert.Error(t, err)
	})
}

func TestRepairOrder_Finalize(t *testing.T) {
	t.Run("from in repair", func(t *testing.T) {
		order := orderInRepair(t)
		invoiceID := uuid.New()
		require.NoError(t, order.Finalize(invoiceID))

		assert.Equal(t, OrderStatusFinalized, order.Status)
		require.NotNil(t, order.InvoiceID)
		assert.Equal(t, invoiceID, *order.InvoiceID)
		assert.NotNil(t, order.FinalizedAt)
	})

	t.Run("from awaiting parts", func(t *testing.T) {
		order := orderInRepair(t)
		require.NoError(t, order.TransitionTo(OrderStatusAwaitingParts))
		assert.NoError(t, order.Finalize(uuid.New()))
	})

	t.Run("second finalize fails fast", func(t *testing.T) {
		order := orderInRepair(t)
		first := uuid.New()
		require.NoError(t, order.Finalize(first))

		err := order.Finalize(uuid.New())
		assert.Error(t, err)
		assert.Equal(t, first, *order.InvoiceID)
	})

	t.Run("not finalizable from received", func(t *testing.T) {
		order := createTestOrder(t)
		assert.False(t, order.CanFinalize())
		assert.Error(t, order.Finalize(uuid.New()))
		assert.Equal(t, OrderStatusReceived, order.Status)
	})
}
