package repository

import (
	"context"
	"fmt"
	"slices"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/coupon"
	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/inventory"
)

const couponColumns = `id, code, name, COALESCE(description, ''), discount_value,
	max_uses, current_uses, valid_from, valid_until, is_active,
	flight_ids, hotel_ids, rental_ids, dynamic_product_ids, created_at, updated_at`

const (
	insertCouponSQL = `INSERT INTO coupons
		(code, name, description, discount_value, max_uses, valid_from, valid_until, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	updateCouponSQL = `UPDATE coupons SET
		code = $2, name = $3, description = $4, discount_value = $5, max_uses = $6,
		valid_from = $7, valid_until = $8, is_active = $9, updated_at = NOW()
		WHERE id = $1`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1`

	getCouponByIDSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	lockCouponSQL = `SELECT id FROM coupons WHERE id = $1 FOR UPDATE`

	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC, id DESC`

	listActiveCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE is_active ORDER BY id`

	incrementCouponUsesSQL = `UPDATE coupons SET current_uses = current_uses + 1, updated_at = NOW()
		WHERE code = $1
		RETURNING current_uses`

	incrementCouponUsesWithinQuotaSQL = `UPDATE coupons SET current_uses = current_uses + 1, updated_at = NOW()
		WHERE code = $1 AND (max_uses IS NULL OR current_uses < max_uses)
		RETURNING current_uses`

	couponExistsByCodeSQL = `SELECT EXISTS (SELECT 1 FROM coupons WHERE code = $1)`

	upsertCouponSQL = `INSERT INTO coupons
		(code, name, description, discount_value, max_uses, valid_from, valid_until, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description,
			discount_value = EXCLUDED.discount_value, max_uses = EXCLUDED.max_uses,
			valid_from = EXCLUDED.valid_from, valid_until = EXCLUDED.valid_until,
			updated_at = NOW()
		RETURNING (xmax = 0)`
)

// assignmentTable is the join table and id-array column for one kind.
type assignmentTable struct {
	join   string
	column string
}

var assignmentTables = map[inventory.Kind]assignmentTable{
	inventory.Flight:         {join: "coupon_flights", column: "flight_ids"},
	inventory.Hotel:          {join: "coupon_hotels", column: "hotel_ids"},
	inventory.Rental:         {join: "coupon_rentals", column: "rental_ids"},
	inventory.DynamicProduct: {join: "coupon_dynamic_products", column: "dynamic_product_ids"},
}

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
// Assignments are written to both the id-array columns and the join tables;
// the join table is the source of truth when diffing.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// Create inserts c and its assignments in one transaction.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon, a coupon.Assignments) (*coupon.Coupon, error) {
	var id int64
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertCouponSQL,
			c.Code, c.Name, c.Description, c.DiscountValue, c.MaxUses,
			c.ValidFrom, c.ValidUntil, c.IsActive,
		).Scan(&id)
		if err != nil {
			if isUniqueViolation(err) {
				return coupon.ErrCodeExists
			}
			return fmt.Errorf("inserting coupon %q: %w", c.Code, err)
		}
		return replaceAssignments(ctx, tx, id, a)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Update writes the descriptive fields, window, quota limit and active flag
// of c, then replaces the given assignments. Current uses are left alone.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon, a coupon.Assignments) (*coupon.Coupon, error) {
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockCoupon(ctx, tx, c.ID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, updateCouponSQL,
			c.ID, c.Code, c.Name, c.Description, c.DiscountValue, c.MaxUses,
			c.ValidFrom, c.ValidUntil, c.IsActive,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return coupon.ErrCodeExists
			}
			return fmt.Errorf("updating coupon %d: %w", c.ID, err)
		}
		return replaceAssignments(ctx, tx, c.ID, a)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, c.ID)
}

// Delete removes the coupon. Join rows go with it through ON DELETE CASCADE.
func (r *CouponRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, id)
	if err != nil {
		return fmt.Errorf("deleting coupon %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// GetByID returns a coupon by its identifier.
func (r *CouponRepository) GetByID(ctx context.Context, id int64) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting coupon %d: %w", id, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("getting coupon %d: %w", id, err)
	}
	return &c, nil
}

// FindByCode looks up a coupon by its normalized code regardless of its
// active flag; the validator decides what an inactive coupon means.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// List returns all coupons, newest first.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// ListActive returns every coupon with the active flag set.
func (r *CouponRepository) ListActive(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listActiveCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing active coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// SetAssignments replaces the id sets of the kinds present in a. The coupon
// row is locked for the duration so concurrent replacements serialize.
func (r *CouponRepository) SetAssignments(ctx context.Context, id int64, a coupon.Assignments) (*coupon.Coupon, error) {
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockCoupon(ctx, tx, id); err != nil {
			return err
		}
		return replaceAssignments(ctx, tx, id, a)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// IncrementUses adds one use without checking the quota.
func (r *CouponRepository) IncrementUses(ctx context.Context, code string) (int, error) {
	var uses int
	err := r.pool.QueryRow(ctx, incrementCouponUsesSQL, code).Scan(&uses)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, coupon.ErrNotFound
		}
		return 0, fmt.Errorf("incrementing uses for coupon %q: %w", code, err)
	}
	return uses, nil
}

// IncrementUsesWithinQuota adds one use only while current uses are below
// max uses. A miss is disambiguated into ErrNotFound or ErrQuotaExhausted.
func (r *CouponRepository) IncrementUsesWithinQuota(ctx context.Context, code string) (int, error) {
	var uses int
	err := r.pool.QueryRow(ctx, incrementCouponUsesWithinQuotaSQL, code).Scan(&uses)
	if err == nil {
		return uses, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("incrementing uses for coupon %q: %w", code, err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, couponExistsByCodeSQL, code).Scan(&exists); err != nil {
		return 0, fmt.Errorf("checking coupon %q: %w", code, err)
	}
	if !exists {
		return 0, coupon.ErrNotFound
	}
	return 0, coupon.ErrQuotaExhausted
}

// UpsertBatch inserts or updates coupons by code in one transaction. Current
// uses, the active flag and assignments of existing rows are kept. It
// returns the number of newly inserted rows.
func (r *CouponRepository) UpsertBatch(ctx context.Context, coupons []coupon.Coupon) (inserted int, err error) {
	err = inTx(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i := range coupons {
			c := &coupons[i]
			batch.Queue(upsertCouponSQL,
				c.Code, c.Name, c.Description, c.DiscountValue, c.MaxUses,
				c.ValidFrom, c.ValidUntil, c.IsActive,
			).QueryRow(func(row pgx.Row) error {
				var isNew bool
				if err := row.Scan(&isNew); err != nil {
					return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
				}
				if isNew {
					inserted++
				}
				return nil
			})
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func lockCoupon(ctx context.Context, tx pgx.Tx, id int64) error {
	var locked int64
	err := tx.QueryRow(ctx, lockCouponSQL, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coupon.ErrNotFound
		}
		return fmt.Errorf("locking coupon %d: %w", id, err)
	}
	return nil
}

// replaceAssignments diffs each kind of a against its join table, applies
// the removals and additions, and rewrites the id-array column to match.
func replaceAssignments(ctx context.Context, tx pgx.Tx, id int64, a coupon.Assignments) error {
	for _, kind := range a.Kinds() {
		t := assignmentTables[kind]
		next := a[kind]

		rows, err := tx.Query(ctx, `SELECT entity_id FROM `+t.join+` WHERE coupon_id = $1 ORDER BY entity_id`, id)
		if err != nil {
			return fmt.Errorf("reading %s of coupon %d: %w", kind.Plural(), id, err)
		}
		current, err := pgx.CollectRows(rows, pgx.RowTo[int64])
		if err != nil {
			return fmt.Errorf("reading %s of coupon %d: %w", kind.Plural(), id, err)
		}

		removed, added := coupon.Diff(current, next)
		if len(removed) > 0 {
			_, err := tx.Exec(ctx, `DELETE FROM `+t.join+` WHERE coupon_id = $1 AND entity_id = ANY($2)`, id, removed)
			if err != nil {
				return fmt.Errorf("unlinking %s from coupon %d: %w", kind.Plural(), id, err)
			}
		}
		if len(added) > 0 {
			_, err := tx.Exec(ctx, `INSERT INTO `+t.join+` (coupon_id, entity_id)
				SELECT $1, unnest($2::BIGINT[]) ON CONFLICT DO NOTHING`, id, added)
			if err != nil {
				return fmt.Errorf("linking %s to coupon %d: %w", kind.Plural(), id, err)
			}
		}

		if next == nil {
			next = []int64{}
		}
		_, err = tx.Exec(ctx, `UPDATE coupons SET `+t.column+` = $2, updated_at = NOW() WHERE id = $1`, id, next)
		if err != nil {
			return fmt.Errorf("writing %s of coupon %d: %w", kind.Plural(), id, err)
		}
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c       coupon.Coupon
		maxUses *int32
		uses    int32
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Name, &c.Description, &c.DiscountValue,
		&maxUses, &uses, &c.ValidFrom, &c.ValidUntil, &c.IsActive,
		&c.FlightIDs, &c.HotelIDs, &c.RentalIDs, &c.DynamicProductIDs,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if maxUses != nil {
		v := int(*maxUses)
		c.MaxUses = &v
	}
	c.CurrentUses = int(uses)
	c.ValidFrom = c.ValidFrom.UTC()
	c.ValidUntil = c.ValidUntil.UTC()
	for _, kind := range inventory.Kinds {
		if c.IDs(kind) == nil {
			c.SetIDs(kind, []int64{})
		}
		slices.Sort(c.IDs(kind))
	}
	return c, err
}
