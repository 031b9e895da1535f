package repositories_test

import (
	"context"
	"testing"
	"time"

	"foodorder/internal/database"
	"foodorder/internal/models"
	"foodorder/internal/repositories"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestGORMOrderRepository_ListNewestFirstAndByOwner(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMOrderRepository(newTestDB(t))

	base := time.Now().Add(-time.Hour)
	for i, owner := range []string{"u1", "u2", "u1"} {
		order := &models.Order{
			UserID:        owner,
			Status:        models.OrderStatusPending,
			PaymentMethod: "COD",
			ItemsPrice:    decimal.NewFromInt(10),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
			Items: []models.OrderItem{
				{ProductID: "p1", Name: "Burger", Quantity: 1, Price: decimal.NewFromInt(10)},
			},
		}
		require.NoError(t, repo.Create(ctx, order))
	}

	all, err := repo.List(ctx, repositories.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))
	assert.Len(t, all[0].Items, 1)

	mine, err := repo.List(ctx, repositories.OrderFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.True(t, mine[0].CreatedAt.After(mine[1].CreatedAt))
}

func TestGORMOrderRepository_UpdateState(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMOrderRepository(newTestDB(t))

	order := &models.Order{UserID: "u1", Status: models.OrderStatusPending, ItemsPrice: decimal.NewFromInt(5)}
	require.NoError(t, repo.Create(ctx, order))

	now := time.Now()
	order.Status = models.OrderStatusCancelled
	order.CancelledBy = models.CancelledByAdmin
	order.CancelledAt = &now
	order.CancelReason = "out of stock"
	order.UpdatedAt = now
	require.NoError(t, repo.UpdateState(ctx, order))

	stored, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)
	assert.Equal(t, models.CancelledByAdmin, stored.CancelledBy)
	assert.Equal(t, "out of stock", stored.CancelReason)
	require.NotNil(t, stored.CancelledAt)

	reopened := *stored
	reopened.Status = models.OrderStatusShipped
	reopened.CancelReason = ""
	err = repo.UpdateState(ctx, &reopened)
	assert.True(t, errors.Is(err, repositories.ErrConflict), "got %v", err)
	stored, err = repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)
	assert.Equal(t, "out of stock", stored.CancelReason)

	err = repo.UpdateState(ctx, &models.Order{ID: "missing", Status: models.OrderStatusShipped})
	assert.True(t, errors.Is(err, repositories.ErrNotFound))

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestGORMCartRepository_SaveReplacesLines(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMCartRepository(newTestDB(t))

	cart := &models.Cart{UserID: "u1"}
	require.NoError(t, repo.Create(ctx, cart))

	cart.Items = append(cart.Items,
		models.CartItem{ProductID: "p1", Quantity: 2, Price: decimal.NewFromInt(4)},
		models.CartItem{ProductID: "p2", Quantity: 1, Price: decimal.NewFromInt(9)},
	)
	require.NoError(t, repo.Save(ctx, cart))

	stored, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	firstID := stored.Items[0].ID
	assert.NotEmpty(t, firstID)

	stored.Items = stored.Items[:1]
	stored.Items[0].Quantity = 5
	require.NoError(t, repo.Save(ctx, stored))

	again, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, again.Items, 1)
	assert.Equal(t, firstID, again.Items[0].ID)
	assert.Equal(t, 5, again.Items[0].Quantity)

	_, err = repo.GetByUserID(ctx, "nobody")
	assert.True(t, errors.Is(err, repositories.ErrNotFound))

	err = repo.Create(ctx, &models.Cart{UserID: "u1"})
	assert.True(t, errors.Is(err, repositories.ErrDuplicate))
}

func TestGORMUserRepository_OTPLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMUserRepository(newTestDB(t))

	user := &models.User{Name: "Ana", Email: "ana@example.com", Password: "hash", Role: models.RoleCustomer, IsActive: true}
	require.NoError(t, repo.Create(ctx, user))

	err := repo.Create(ctx, &models.User{Name: "Ana 2", Email: "ana@example.com", Password: "x"})
	assert.True(t, errors.Is(err, repositories.ErrDuplicate))

	expires := time.Now().Add(10 * time.Minute)
	require.NoError(t, repo.SetOTP(ctx, user.ID, "otp-hash", expires))

	stored, err := repo.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "otp-hash", stored.OTPHash)
	require.NotNil(t, stored.OTPExpiresAt)

	burned, err := repo.RecordOTPFailure(ctx, user.ID, 2)
	require.NoError(t, err)
	assert.False(t, burned)
	stored, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.OTPAttempts)
	assert.Equal(t, "otp-hash", stored.OTPHash)

	burned, err = repo.RecordOTPFailure(ctx, user.ID, 2)
	require.NoError(t, err)
	assert.True(t, burned)
	stored, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.OTPHash)
	assert.Nil(t, stored.OTPExpiresAt)
	assert.Zero(t, stored.OTPAttempts)

	_, err = repo.RecordOTPFailure(ctx, "missing", 2)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))

	require.NoError(t, repo.SetOTP(ctx, user.ID, "otp-hash-2", expires))
	require.NoError(t, repo.ResetPassword(ctx, user.ID, "new-hash"))
	stored, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", stored.Password)
	assert.Empty(t, stored.OTPHash)
	assert.Nil(t, stored.OTPExpiresAt)
}

func TestGORMProductRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMProductRepository(newTestDB(t))

	product := &models.Product{Name: "Pizza", Price: decimal.NewFromFloat(9.5), Category: "Mains", Stock: 4}
	require.NoError(t, repo.Create(ctx, product))
	assert.NotEmpty(t, product.ID)

	product.Price = decimal.NewFromInt(11)
	require.NoError(t, repo.Update(ctx, product))

	stored, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(11).Equal(stored.Price))

	require.NoError(t, repo.Delete(ctx, product.ID))
	assert.True(t, errors.Is(repo.Delete(ctx, product.ID), repositories.ErrNotFound))
	assert.True(t, errors.Is(repo.Update(ctx, product), repositories.ErrNotFound))
}
