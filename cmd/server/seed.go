package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/SamMDev/Console-Banking-App/internal/app"
	"github.com/SamMDev/Console-Banking-App/internal/domain"
	"github.com/SamMDev/Console-Banking-App/internal/store"
)

var (
	seedFirstNames = []string{"Anna", "Boris", "Clara", "Daniel", "Eva", "Filip", "Greta", "Henrik", "Iva", "Jakub"}
	seedLastNames  = []string{"Novak", "Horvat", "Kral", "Urban", "Svoboda", "Dvorak", "Marek", "Polak", "Ruzicka", "Sedlak"}
)

// seedCustomers registers n demo customers with opened zero-balance accounts
// so a fresh instance has something to play with.
func seedCustomers(ctx context.Context, registrar store.CustomerRegistrar, service *app.Service, n int, logger *slog.Logger) error {
	for i := 0; i < n; i++ {
		firstName := seedFirstNames[rand.Intn(len(seedFirstNames))]
		lastName := seedLastNames[rand.Intn(len(seedLastNames))]
		email := fmt.Sprintf("%s_%s%04d@example.com", firstName, lastName, rand.Intn(10000))

		id, err := registrar.CreateCustomer(ctx, firstName, lastName, email)
		if err != nil {
			// Random email collision on an already-seeded database; skip.
			if errors.Is(err, domain.ErrAlreadyExists) {
				continue
			}
			return fmt.Errorf("creating demo customer: %w", err)
		}
		if err := service.OpenAccount(ctx, id); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
			return fmt.Errorf("opening demo account %d: %w", id, err)
		}
	}
	logger.Info("seeded demo customers", "count", n)
	return nil
}
