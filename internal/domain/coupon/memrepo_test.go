package coupon

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/inventory"
)

// memRepo is an in-memory Repository. A single mutex stands in for the row
// lock and the conditional UPDATE of the Postgres implementation.
type memRepo struct {
	mu      sync.Mutex
	nextID  int64
	coupons map[int64]*Coupon
	// links mirrors the join tables: kind -> coupon id -> entity ids.
	links map[inventory.Kind]map[int64][]int64

	listErr error
}

func newMemRepo(coupons ...*Coupon) *memRepo {
	r := &memRepo{
		coupons: make(map[int64]*Coupon),
		links:   make(map[inventory.Kind]map[int64][]int64),
	}
	for _, k := range inventory.Kinds {
		r.links[k] = make(map[int64][]int64)
	}
	for _, c := range coupons {
		r.nextID++
		stored := *c
		stored.ID = r.nextID
		r.coupons[stored.ID] = &stored
		for _, k := range inventory.Kinds {
			r.links[k][stored.ID] = slices.Clone(stored.IDs(k))
		}
	}
	return r
}

func (r *memRepo) snapshot(c *Coupon) *Coupon {
	out := *c
	for _, k := range inventory.Kinds {
		out.SetIDs(k, slices.Clone(c.IDs(k)))
	}
	return &out
}

func (r *memRepo) codeTaken(code string, except int64) bool {
	for id, c := range r.coupons {
		if id != except && c.Code == code {
			return true
		}
	}
	return false
}

func (r *memRepo) apply(c *Coupon, a Assignments) {
	for _, k := range a.Kinds() {
		current := r.links[k][c.ID]
		removed, added := Diff(current, a[k])
		next := slices.DeleteFunc(slices.Clone(current), func(id int64) bool {
			return slices.Contains(removed, id)
		})
		next = append(next, added...)
		slices.Sort(next)
		r.links[k][c.ID] = next
		c.SetIDs(k, slices.Clone(a[k]))
	}
}

func (r *memRepo) Create(_ context.Context, c *Coupon, a Assignments) (*Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.codeTaken(c.Code, 0) {
		return nil, ErrCodeExists
	}
	r.nextID++
	stored := *c
	stored.ID = r.nextID
	stored.CurrentUses = 0
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.apply(&stored, a)
	r.coupons[stored.ID] = &stored
	return r.snapshot(&stored), nil
}

func (r *memRepo) Update(_ context.Context, c *Coupon, a Assignments) (*Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.coupons[c.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if r.codeTaken(c.Code, c.ID) {
		return nil, ErrCodeExists
	}
	uses := stored.CurrentUses
	links := map[inventory.Kind][]int64{}
	for _, k := range inventory.Kinds {
		links[k] = stored.IDs(k)
	}
	*stored = *c
	stored.CurrentUses = uses
	for k, ids := range links {
		stored.SetIDs(k, ids)
	}
	stored.UpdatedAt = time.Now()
	r.apply(stored, a)
	return r.snapshot(stored), nil
}

func (r *memRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.coupons[id]; !ok {
		return ErrNotFound
	}
	delete(r.coupons, id)
	for _, k := range inventory.Kinds {
		delete(r.links[k], id)
	}
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id int64) (*Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.coupons[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.snapshot(c), nil
}

func (r *memRepo) FindByCode(_ context.Context, code string) (*Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.coupons {
		if c.Code == code {
			return r.snapshot(c), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) List(_ context.Context) ([]Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]Coupon, 0, len(r.coupons))
	for _, c := range r.coupons {
		out = append(out, *r.snapshot(c))
	}
	slices.SortFunc(out, func(a, b Coupon) int { return int(b.ID - a.ID) })
	return out, nil
}

func (r *memRepo) ListActive(ctx context.Context) ([]Coupon, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(all, func(c Coupon) bool { return !c.IsActive }), nil
}

func (r *memRepo) SetAssignments(_ context.Context, id int64, a Assignments) (*Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.coupons[id]
	if !ok {
		return nil, ErrNotFound
	}
	r.apply(c, a)
	return r.snapshot(c), nil
}

func (r *memRepo) IncrementUses(_ context.Context, code string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.coupons {
		if c.Code == code {
			c.CurrentUses++
			return c.CurrentUses, nil
		}
	}
	return 0, ErrNotFound
}

func (r *memRepo) IncrementUsesWithinQuota(_ context.Context, code string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.coupons {
		if c.Code != code {
			continue
		}
		if c.MaxUses != nil && c.CurrentUses >= *c.MaxUses {
			return 0, ErrQuotaExhausted
		}
		c.CurrentUses++
		return c.CurrentUses, nil
	}
	return 0, ErrNotFound
}

type staticChecker struct {
	ids map[inventory.Kind][]int64
}

func (s staticChecker) ExistingIDs(_ context.Context, kind inventory.Kind, ids []int64) ([]int64, error) {
	var out []int64
	for _, id := range ids {
		if slices.Contains(s.ids[kind], id) {
			out = append(out, id)
		}
	}
	return out, nil
}

func intPtr(v int) *int { return &v }
