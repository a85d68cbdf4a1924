package seeders

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/shashiranjanraj/vidyapay/app/models"
	"github.com/shashiranjanraj/vidyapay/pkg/auth"
	"github.com/shashiranjanraj/vidyapay/pkg/logger"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "secret123"

	demoOrderCount = 25
)

var demoSchoolIDs = []string{
	"65b0e6293e9f76a9694d84b4",
	"65b0e6293e9f76a9694d9152",
	"65b0e6293e9f76a9694d77ab",
}

func init() {
	Register("admin", SeedAdmin)
	Register("schools", SeedSchools)
	Register("orders", SeedOrders)
}

// SeedAdmin creates the default admin account unless it already exists.
func SeedAdmin(ctx context.Context, env *Env) error {
	existing, err := env.Users.FindByEmail(ctx, adminEmail)
	if err != nil {
		return err
	}
	if existing != nil {
		logger.Info("admin already present", "email", adminEmail)
		return nil
	}

	hashed, err := auth.HashPassword(adminPassword)
	if err != nil {
		return err
	}
	return env.Users.Create(ctx, &models.User{
		Email:    adminEmail,
		Password: hashed,
		Name:     "Administrator",
		Role:     models.RoleAdmin,
	})
}

// SeedSchools upserts display names for the demo school ids, preferring the
// configured static map.
func SeedSchools(ctx context.Context, env *Env) error {
	for _, id := range demoSchoolIDs {
		name := env.Cfg.SchoolNames[id]
		if name == "" {
			name = "Institute " + id[len(id)-4:]
		}
		if err := env.Schools.UpsertName(ctx, id, name); err != nil {
			return err
		}
	}
	return nil
}

// SeedOrders inserts demo orders with rotating statuses so the reporting
// screens have data to show.
func SeedOrders(ctx context.Context, env *Env) error {
	cycle := []string{models.StatusPending, models.StatusSuccess, models.StatusFailed}

	for i := 0; i < demoOrderCount; i++ {
		amount := float64(500 + rand.Intn(9500))
		order := &models.Order{
			SchoolID: demoSchoolIDs[i%len(demoSchoolIDs)],
			StudentInfo: models.StudentInfo{
				Name:  fmt.Sprintf("Student %02d", i+1),
				ID:    fmt.Sprintf("STU-%03d", i+1),
				Email: fmt.Sprintf("student%02d@example.com", i+1),
			},
			GatewayName:   models.SimulatedGateway,
			CustomOrderID: fmt.Sprintf("ORD-%d-%05d", time.Now().UnixMilli()-int64(i*60_000), rand.Intn(100000)),
			OrderAmount:   amount,
		}
		if err := env.Orders.Create(ctx, order); err != nil {
			return err
		}

		status := cycle[i%len(cycle)]
		fields := bson.M{
			"order_amount": amount,
			"status":       status,
			"gateway":      models.SimulatedGateway,
			"payment_mode": "upi",
			"payment_time": time.Now().Add(-time.Duration(i) * time.Minute),
		}
		if status == models.StatusSuccess {
			fields["transaction_amount"] = amount
			fields["bank_reference"] = "SEED-" + order.ID.Hex()
			fields["payment_message"] = "payment success"
		}
		if status == models.StatusFailed {
			fields["error_message"] = "payment declined"
		}
		if err := env.Statuses.UpsertByOrder(ctx, order.ID, fields); err != nil {
			return err
		}
	}
	logger.Info("seeded demo orders", "count", demoOrderCount)
	return nil
}
