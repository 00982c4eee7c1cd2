package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/auth"
	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/coupon"
	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/inventory"
	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/repository"
)

func main() {
	var (
		databaseURL  string
		adminKey     string
		checkoutKey  string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&adminKey, "admin-key", "", "admin API key to seed (or DEALS_SEED_ADMIN_KEY env)")
	flag.StringVar(&checkoutKey, "checkout-key", "", "checkout API key to seed (or DEALS_SEED_CHECKOUT_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or DEALS_API_KEY_PEPPER env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	databaseURL = orEnv(databaseURL, "DATABASE_URL")
	adminKey = orEnv(adminKey, "DEALS_SEED_ADMIN_KEY")
	checkoutKey = orEnv(checkoutKey, "DEALS_SEED_CHECKOUT_KEY")
	apiKeyPepper = orEnv(apiKeyPepper, "DEALS_API_KEY_PEPPER")

	if databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}
	if adminKey == "" {
		lg.Fatal("admin key is required: set --admin-key or DEALS_SEED_ADMIN_KEY")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	s := seeder{lg: lg, pepper: []byte(apiKeyPepper)}
	if err := s.run(ctx, databaseURL, adminKey, checkoutKey); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed successfully")
}

func orEnv(v, key string) string {
	if v != "" {
		return v
	}
	return os.Getenv(key)
}

type seeder struct {
	lg        *zap.Logger
	pepper    []byte
	inventory *repository.InventoryRepository
	coupons   *coupon.Service
	keys      *repository.APIKeyRepository
}

// seeded holds the inventory ids created in this run, used to build the
// sample coupon assignments.
type seeded struct {
	flights  []int64
	hotels   []int64
	rentals  []int64
	products []int64
}

func (s *seeder) run(ctx context.Context, databaseURL, adminKey, checkoutKey string) error {
	s.lg.Info("Connecting to database")
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	s.lg.Info("Running migrations")
	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	s.inventory = repository.NewInventoryRepository(pool)
	s.keys = repository.NewAPIKeyRepository(pool)
	s.coupons, err = coupon.NewService(repository.NewCouponRepository(pool))
	if err != nil {
		return errors.Wrap(err, "create coupon service")
	}

	ids, err := s.seedInventory(ctx)
	if err != nil {
		return errors.Wrap(err, "seed inventory")
	}
	if err := s.seedCoupons(ctx, ids, time.Now().UTC()); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := s.seedAPIKey(ctx, "admin", adminKey, auth.ScopeAdmin); err != nil {
		return errors.Wrap(err, "seed admin key")
	}
	if checkoutKey != "" {
		if err := s.seedAPIKey(ctx, "checkout", checkoutKey, auth.ScopeCheckout); err != nil {
			return errors.Wrap(err, "seed checkout key")
		}
	}
	return nil
}

func (s *seeder) seedInventory(ctx context.Context) (seeded, error) {
	var out seeded
	departs := time.Now().UTC().AddDate(0, 1, 0).Truncate(time.Hour)

	flights := []inventory.FlightEntity{
		{Airline: "Lufthansa", Origin: "FRA", Destination: "PMI", DepartsAt: departs, Price: decimal.RequireFromString("129.00")},
		{Airline: "Condor", Origin: "MUC", Destination: "HER", DepartsAt: departs.AddDate(0, 0, 3), Price: decimal.RequireFromString("189.50")},
		{Airline: "Eurowings", Origin: "CGN", Destination: "LIS", DepartsAt: departs.AddDate(0, 0, 7), Price: decimal.RequireFromString("99.99")},
	}
	for _, f := range flights {
		id, err := s.inventory.CreateFlight(ctx, f)
		if err != nil {
			return out, err
		}
		out.flights = append(out.flights, id)
	}

	hotels := []inventory.Stay{
		{Name: "Hotel Playa Sol", City: "Palma", Price: decimal.RequireFromString("140.00")},
		{Name: "Knossos Beach Resort", City: "Heraklion", Price: decimal.RequireFromString("210.00")},
	}
	for _, h := range hotels {
		id, err := s.inventory.CreateStay(ctx, inventory.Hotel, h)
		if err != nil {
			return out, err
		}
		out.hotels = append(out.hotels, id)
	}

	rentals := []inventory.Stay{
		{Name: "Alfama Apartment", City: "Lisbon", Price: decimal.RequireFromString("95.00")},
		{Name: "Finca Son Vida", City: "Palma", Price: decimal.RequireFromString("320.00")},
	}
	for _, r := range rentals {
		id, err := s.inventory.CreateStay(ctx, inventory.Rental, r)
		if err != nil {
			return out, err
		}
		out.rentals = append(out.rentals, id)
	}

	catID, err := s.inventory.UpsertCategory(ctx, "Experiences")
	if err != nil {
		return out, err
	}
	products := []inventory.DynamicProductEntity{
		{CategoryID: &catID, Name: "Sunset Catamaran Tour", Price: decimal.RequireFromString("65.00")},
		{CategoryID: &catID, Name: "Sintra Day Trip", Price: decimal.RequireFromString("45.00")},
	}
	for _, p := range products {
		id, err := s.inventory.CreateDynamicProduct(ctx, p)
		if err != nil {
			return out, err
		}
		out.products = append(out.products, id)
	}

	s.lg.Info("Seeded inventory",
		zap.Int("flights", len(out.flights)),
		zap.Int("hotels", len(out.hotels)),
		zap.Int("rentals", len(out.rentals)),
		zap.Int("dynamic_products", len(out.products)),
	)
	return out, nil
}

func (s *seeder) seedCoupons(ctx context.Context, ids seeded, now time.Time) error {
	limit := 100
	start := coupon.StartOfDay(now)
	samples := []coupon.CreateParams{
		{
			Code:          "SUMMER10",
			Name:          "Summer sale",
			Description:   "10 off selected flights and hotels",
			DiscountValue: ptr(decimal.NewFromInt(10)),
			MaxUses:       &limit,
			ValidFrom:     start,
			ValidUntil:    start.AddDate(0, 3, 0),
			Assignments: coupon.Assignments{
				inventory.Flight: ids.flights,
				inventory.Hotel:  ids.hotels,
			},
		},
		{
			Code:          "CITYBREAK",
			Name:          "City break",
			DiscountValue: ptr(decimal.RequireFromString("25.50")),
			ValidFrom:     start,
			ValidUntil:    start.AddDate(1, 0, 0),
			Assignments: coupon.Assignments{
				inventory.Rental:         ids.rentals,
				inventory.DynamicProduct: ids.products,
			},
		},
		{
			Code:          "EARLYBIRD",
			Name:          "Early bird",
			Description:   "Starts next month",
			DiscountValue: ptr(decimal.NewFromInt(15)),
			ValidFrom:     start.AddDate(0, 1, 0),
			ValidUntil:    start.AddDate(0, 6, 0),
			Assignments:   coupon.Assignments{inventory.Flight: ids.flights},
		},
	}

	for _, p := range samples {
		c, err := s.coupons.Create(ctx, p)
		if errors.Is(err, coupon.ErrCodeExists) {
			s.lg.Info("Coupon already present", zap.String("code", p.Code))
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "create coupon %s", p.Code)
		}
		s.lg.Info("Created coupon", zap.String("code", c.Code), zap.Int64("id", c.ID))
	}
	return nil
}

func (s *seeder) seedAPIKey(ctx context.Context, id, key, scope string) error {
	if err := s.keys.Upsert(ctx, auth.APIKeyInfo{
		ID:      id,
		KeyHash: auth.HashKey(s.pepper, key),
		Name:    id + " key",
		Scopes:  []string{scope},
	}); err != nil {
		return err
	}
	s.lg.Info("Upserted API key", zap.String("id", id), zap.String("scope", scope))
	return nil
}

func ptr[T any](v T) *T { return &v }
