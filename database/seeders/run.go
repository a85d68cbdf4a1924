// Package seeders provides a registry of database seed functions.
//
// Define a seeder in any file in this package:
//
//	func init() {
//	    seeders.Register("admin", SeedAdmin)
//	}
//
// Then run via CLI: vidyapay seed
package seeders

import (
	"context"
	"fmt"
	"sync"

	"github.com/shashiranjanraj/vidyapay/app/repositories"
	"github.com/shashiranjanraj/vidyapay/config"
	"github.com/shashiranjanraj/vidyapay/pkg/database"
	"github.com/shashiranjanraj/vidyapay/pkg/logger"
)

// Env is what every seeder gets to work with.
type Env struct {
	Cfg      *config.Config
	Users    *repositories.UserRepository
	Orders   *repositories.OrderRepository
	Statuses *repositories.StatusRepository
	Schools  *repositories.SchoolRepository
}

// SeederFunc is the signature for a seed function.
type SeederFunc func(ctx context.Context, env *Env) error

type seederEntry struct {
	name string
	fn   SeederFunc
}

var (
	mu      sync.Mutex
	entries []seederEntry
)

// Register adds a seeder to the global registry. Call from init().
func Register(name string, fn SeederFunc) {
	mu.Lock()
	defer mu.Unlock()
	entries = append(entries, seederEntry{name: name, fn: fn})
}

// RunAll executes every registered seeder in registration order. It stops
// on the first error.
func RunAll(ctx context.Context, cfg *config.Config, db *database.DB) error {
	env := &Env{
		Cfg:      cfg,
		Users:    repositories.NewUserRepository(db),
		Orders:   repositories.NewOrderRepository(db),
		Statuses: repositories.NewStatusRepository(db),
		Schools:  repositories.NewSchoolRepository(db),
	}

	mu.Lock()
	current := make([]seederEntry, len(entries))
	copy(current, entries)
	mu.Unlock()

	for _, entry := range current {
		logger.Info("seeding", "seeder", entry.name)
		if err := entry.fn(ctx, env); err != nil {
			return fmt.Errorf("seeder %q: %w", entry.name, err)
		}
	}
	return nil
}
