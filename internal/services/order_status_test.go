package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"foodorder/internal/models"
	"foodorder/internal/services"
)

func TestTransitionTable(t *testing.T) {
	for _, s := range models.OrderStatuses {
		assert.True(t, services.ValidStatus(s), s)
	}
	assert.False(t, services.ValidStatus("Lost"))
	assert.False(t, services.ValidStatus("pending"))

	assert.True(t, services.IsTerminal(models.OrderStatusDelivered))
	assert.True(t, services.IsTerminal(models.OrderStatusCancelled))
	assert.False(t, services.IsTerminal(models.OrderStatusShipped))
	assert.False(t, services.IsTerminal("Lost"))

	// non-terminal statuses may move anywhere, backwards included
	assert.True(t, services.CanTransition(models.OrderStatusShipped, models.OrderStatusPending))
	assert.True(t, services.CanTransition(models.OrderStatusPending, models.OrderStatusPending))
	assert.True(t, services.CanTransition(models.OrderStatusProcessing, models.OrderStatusDelivered))

	for _, to := range models.OrderStatuses {
		assert.False(t, services.CanTransition(models.OrderStatusDelivered, to))
		assert.False(t, services.CanTransition(models.OrderStatusCancelled, to))
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, services.KindValidation, services.KindOf(services.ValidationError("bad %s", "input")))
	assert.Equal(t, services.KindInternal, services.KindOf(assert.AnError))
	assert.True(t, services.IsKind(services.WindowExpiredError("late"), services.KindWindowExpired))
	assert.False(t, services.IsKind(nil, services.KindInternal))

	err := services.TransportError(assert.AnError, "notify failed")
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "notify failed")
}
