package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/inventory"
)

const (
	upsertCategorySQL = `INSERT INTO categories (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	insertFlightSQL = `INSERT INTO flights (airline, origin, destination, departs_at, price)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	insertDynamicProductSQL = `INSERT INTO dynamic_products (category_id, name, price)
		VALUES ($1, $2, $3) RETURNING id`
)

var inventoryTables = map[inventory.Kind]string{
	inventory.Flight:         "flights",
	inventory.Hotel:          "hotels",
	inventory.Rental:         "rentals",
	inventory.DynamicProduct: "dynamic_products",
}

var _ inventory.Checker = (*InventoryRepository)(nil)

// InventoryRepository reads and seeds the inventory tables.
type InventoryRepository struct {
	pool *pgxpool.Pool
}

// NewInventoryRepository returns an InventoryRepository that uses the given pool.
func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

// ExistingIDs returns the subset of ids present in the table for kind,
// ordered by id.
func (r *InventoryRepository) ExistingIDs(ctx context.Context, kind inventory.Kind, ids []int64) ([]int64, error) {
	table, ok := inventoryTables[kind]
	if !ok {
		return nil, fmt.Errorf("existing ids: %w", inventory.ErrUnknownKind)
	}
	rows, err := r.pool.Query(ctx, `SELECT id FROM `+table+` WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", table, err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// UpsertCategory returns the id of the category with the given name,
// creating it if needed.
func (r *InventoryRepository) UpsertCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	if err := r.pool.QueryRow(ctx, upsertCategorySQL, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("upserting category %q: %w", name, err)
	}
	return id, nil
}

// CreateFlight inserts a flight and returns its id.
func (r *InventoryRepository) CreateFlight(ctx context.Context, f inventory.FlightEntity) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, insertFlightSQL,
		f.Airline, f.Origin, f.Destination, f.DepartsAt, f.Price,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating flight %s-%s: %w", f.Origin, f.Destination, err)
	}
	return id, nil
}

// CreateStay inserts a hotel or rental and returns its id.
func (r *InventoryRepository) CreateStay(ctx context.Context, kind inventory.Kind, s inventory.Stay) (int64, error) {
	if kind != inventory.Hotel && kind != inventory.Rental {
		return 0, fmt.Errorf("creating stay of kind %q: %w", kind, inventory.ErrUnknownKind)
	}
	table := inventoryTables[kind]

	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO `+table+` (name, city, price) VALUES ($1, $2, $3) RETURNING id`,
		s.Name, s.City, s.Price,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating %s %q: %w", kind, s.Name, err)
	}
	return id, nil
}

// CreateDynamicProduct inserts a dynamic product and returns its id.
func (r *InventoryRepository) CreateDynamicProduct(ctx context.Context, p inventory.DynamicProductEntity) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, insertDynamicProductSQL, p.CategoryID, p.Name, p.Price).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating dynamic product %q: %w", p.Name, err)
	}
	return id, nil
}

// Delete removes an inventory entity. Coupon assignments pointing at it are
// left in place as soft references.
func (r *InventoryRepository) Delete(ctx context.Context, kind inventory.Kind, id int64) error {
	table, ok := inventoryTables[kind]
	if !ok {
		return fmt.Errorf("deleting: %w", inventory.ErrUnknownKind)
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting %s %d: %w", kind, id, err)
	}
	return nil
}
