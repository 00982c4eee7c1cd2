package handler

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"

	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/auth"
	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/coupon"
	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/inventory"
)

type fakeRepo struct {
	mu      sync.Mutex
	coupons []*coupon.Coupon
	err     error
}

func (f *fakeRepo) clone(c *coupon.Coupon) *coupon.Coupon {
	out := *c
	for _, k := range inventory.Kinds {
		ids := slices.Clone(c.IDs(k))
		if ids == nil {
			ids = []int64{}
		}
		out.SetIDs(k, ids)
	}
	return &out
}

func (f *fakeRepo) find(match func(*coupon.Coupon) bool) *coupon.Coupon {
	for _, c := range f.coupons {
		if match(c) {
			return c
		}
	}
	return nil
}

func (f *fakeRepo) Create(_ context.Context, c *coupon.Coupon, a coupon.Assignments) (*coupon.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.find(func(x *coupon.Coupon) bool { return x.Code == c.Code }) != nil {
		return nil, coupon.ErrCodeExists
	}
	stored := f.clone(c)
	stored.ID = int64(len(f.coupons) + 1)
	for k, ids := range a {
		stored.SetIDs(k, ids)
	}
	f.coupons = append(f.coupons, stored)
	return f.clone(stored), nil
}

func (f *fakeRepo) Update(_ context.Context, c *coupon.Coupon, a coupon.Assignments) (*coupon.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := f.find(func(x *coupon.Coupon) bool { return x.ID == c.ID })
	if stored == nil {
		return nil, coupon.ErrNotFound
	}
	uses := stored.CurrentUses
	*stored = *f.clone(c)
	stored.CurrentUses = uses
	for k, ids := range a {
		stored.SetIDs(k, ids)
	}
	return f.clone(stored), nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.coupons)
	f.coupons = slices.DeleteFunc(f.coupons, func(c *coupon.Coupon) bool { return c.ID == id })
	if len(f.coupons) == n {
		return coupon.ErrNotFound
	}
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*coupon.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c := f.find(func(x *coupon.Coupon) bool { return x.ID == id }); c != nil {
		return f.clone(c), nil
	}
	return nil, coupon.ErrNotFound
}

func (f *fakeRepo) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if c := f.find(func(x *coupon.Coupon) bool { return x.Code == code }); c != nil {
		return f.clone(c), nil
	}
	return nil, coupon.ErrNotFound
}

func (f *fakeRepo) List(_ context.Context) ([]coupon.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]coupon.Coupon, 0, len(f.coupons))
	for i := len(f.coupons) - 1; i >= 0; i-- {
		out = append(out, *f.clone(f.coupons[i]))
	}
	return out, nil
}

func (f *fakeRepo) ListActive(ctx context.Context) ([]coupon.Coupon, error) {
	all, err := f.List(ctx)
	return slices.DeleteFunc(all, func(c coupon.Coupon) bool { return !c.IsActive }), err
}

func (f *fakeRepo) SetAssignments(_ context.Context, id int64, a coupon.Assignments) (*coupon.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.find(func(x *coupon.Coupon) bool { return x.ID == id })
	if c == nil {
		return nil, coupon.ErrNotFound
	}
	for k, ids := range a {
		c.SetIDs(k, ids)
	}
	return f.clone(c), nil
}

func (f *fakeRepo) IncrementUses(_ context.Context, code string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.find(func(x *coupon.Coupon) bool { return x.Code == code })
	if c == nil {
		return 0, coupon.ErrNotFound
	}
	c.CurrentUses++
	return c.CurrentUses, nil
}

func (f *fakeRepo) IncrementUsesWithinQuota(_ context.Context, code string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.find(func(x *coupon.Coupon) bool { return x.Code == code })
	if c == nil {
		return 0, coupon.ErrNotFound
	}
	if c.MaxUses != nil && c.CurrentUses >= *c.MaxUses {
		return 0, coupon.ErrQuotaExhausted
	}
	c.CurrentUses++
	return c.CurrentUses, nil
}

// keyAuth accepts "admin" for every scope and "checkout" for redemption.
// "outage" simulates an unreachable key store.
type keyAuth struct{}

func (keyAuth) Authenticate(_ context.Context, key, scope string) (*auth.APIKeyInfo, error) {
	switch {
	case key == "outage":
		return nil, errors.Wrap(errors.New("connection refused"), "find api key")
	case key == "admin":
		return &auth.APIKeyInfo{ID: "admin", Scopes: []string{auth.ScopeAdmin}}, nil
	case key == "checkout" && scope == auth.ScopeCheckout:
		return &auth.APIKeyInfo{ID: "checkout", Scopes: []string{auth.ScopeCheckout}}, nil
	}
	return nil, errors.Wrap(auth.ErrUnauthorized, "unknown key")
}
