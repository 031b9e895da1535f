package app

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"foodorder/internal/models"
	"foodorder/internal/repositories"
)

var sampleMenu = []models.Product{
	{Name: "Margherita Pizza", Description: "Tomato, mozzarella and basil", Price: decimal.RequireFromString("8.50"), Category: "Pizza", Stock: 50},
	{Name: "Pepperoni Pizza", Description: "Tomato, mozzarella and pepperoni", Price: decimal.RequireFromString("9.90"), Category: "Pizza", Stock: 50},
	{Name: "Chicken Burger", Description: "Grilled chicken, lettuce and mayo", Price: decimal.RequireFromString("7.25"), Category: "Burgers", Stock: 40},
	{Name: "Veggie Burger", Description: "Bean patty with avocado", Price: decimal.RequireFromString("6.75"), Category: "Burgers", Stock: 40},
	{Name: "Pad Thai", Description: "Rice noodles with peanuts and lime", Price: decimal.RequireFromString("10.00"), Category: "Noodles", Stock: 30},
	{Name: "French Fries", Description: "Salted, large portion", Price: decimal.RequireFromString("2.90"), Category: "Sides", Stock: 100},
	{Name: "Lemonade", Description: "Fresh, 0.4l", Price: decimal.RequireFromString("2.50"), Category: "Drinks", Stock: 100},
}

// Seed loads the sample menu into an empty catalog and creates the bootstrap
// admin when adminEmail is set and not yet registered.
func Seed(ctx context.Context, a *App, adminEmail, adminPassword string) error {
	existing, err := a.Products.GetAllProducts(ctx)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		for i := range sampleMenu {
			product := sampleMenu[i]
			if err := a.Products.CreateProduct(ctx, &product); err != nil {
				return errors.Wrapf(err, "failed to seed %s", product.Name)
			}
		}
		logrus.WithField("products", len(sampleMenu)).Info("sample menu seeded")
	} else {
		logrus.WithField("products", len(existing)).Info("catalog not empty, skipping menu")
	}

	if adminEmail == "" {
		return nil
	}
	_, err = a.Auth.RegisterAdmin(ctx, &models.Admin{Name: "Administrator", Email: adminEmail, Password: adminPassword})
	switch {
	case err == nil:
		logrus.WithField("email", adminEmail).Info("bootstrap admin created")
	case errors.Is(err, repositories.ErrDuplicate):
		logrus.WithField("email", adminEmail).Info("bootstrap admin already exists")
	default:
		return err
	}
	return nil
}
