package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/inventory"
)

func eligibilityRepo() *memRepo {
	return newMemRepo(
		&Coupon{
			Code:          "JUNE",
			Name:          "June",
			DiscountValue: decimal.NewFromInt(10),
			ValidFrom:     day(2024, 6, 1),
			ValidUntil:    EndOfDay(day(2024, 6, 30)),
			IsActive:      true,
			HotelIDs:      []int64{5, 7},
			FlightIDs:     []int64{1},
		},
		&Coupon{
			Code:          "MIDJUNE",
			Name:          "Mid June",
			DiscountValue: decimal.NewFromInt(15),
			ValidFrom:     day(2024, 6, 10),
			ValidUntil:    EndOfDay(day(2024, 6, 20)),
			IsActive:      true,
			HotelIDs:      []int64{7, 9},
		},
		&Coupon{
			Code:          "OFF",
			Name:          "Disabled",
			DiscountValue: decimal.NewFromInt(50),
			ValidFrom:     day(2024, 1, 1),
			ValidUntil:    EndOfDay(day(2024, 12, 31)),
			IsActive:      false,
			HotelIDs:      []int64{100},
		},
	)
}

func codesOf(e *Eligibility) []string {
	var out []string
	for _, c := range e.Coupons {
		out = append(out, c.Code)
	}
	return out
}

func TestService_FindEligibleEntities(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, eligibilityRepo())

	tests := []struct {
		name      string
		q         EligibilityQuery
		wantCodes []string
		wantIDs   []int64
	}{
		{
			name:      "range covered by both",
			q:         EligibilityQuery{Kind: inventory.Hotel, Start: day(2024, 6, 12), End: day(2024, 6, 15)},
			wantCodes: []string{"JUNE", "MIDJUNE"},
			wantIDs:   []int64{5, 7, 9},
		},
		{
			name:      "range covered by one",
			q:         EligibilityQuery{Kind: inventory.Hotel, Start: day(2024, 6, 6), End: day(2024, 6, 13)},
			wantCodes: []string{"JUNE"},
			wantIDs:   []int64{5, 7},
		},
		{
			name:      "single day at window end",
			q:         EligibilityQuery{Kind: inventory.Hotel, Start: day(2024, 6, 30), End: day(2024, 6, 30)},
			wantCodes: []string{"JUNE"},
			wantIDs:   []int64{5, 7},
		},
		{
			name:    "range leaks past window",
			q:       EligibilityQuery{Kind: inventory.Hotel, Start: day(2024, 6, 25), End: day(2024, 7, 2)},
			wantIDs: []int64{},
		},
		{
			name:      "other kind",
			q:         EligibilityQuery{Kind: inventory.Flight, Start: day(2024, 6, 12), End: day(2024, 6, 15)},
			wantCodes: []string{"JUNE", "MIDJUNE"},
			wantIDs:   []int64{1},
		},
		{
			name:      "kind with nothing assigned",
			q:         EligibilityQuery{Kind: inventory.Rental, Start: day(2024, 6, 12), End: day(2024, 6, 15)},
			wantCodes: []string{"JUNE", "MIDJUNE"},
			wantIDs:   []int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindEligibleEntities(ctx, tt.q)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.wantCodes, codesOf(got))
			assert.Equal(t, tt.wantIDs, got.EntityIDs)
			assert.NotNil(t, got.Coupons)
		})
	}
}

func TestService_FindEligibleEntitiesInvalid(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, eligibilityRepo())

	for _, q := range []EligibilityQuery{
		{Kind: "boat", Start: day(2024, 6, 1), End: day(2024, 6, 2)},
		{Kind: inventory.Hotel, End: day(2024, 6, 2)},
		{Kind: inventory.Hotel, Start: day(2024, 6, 1)},
		{Kind: inventory.Hotel, Start: day(2024, 6, 3), End: day(2024, 6, 2)},
	} {
		_, err := s.FindEligibleEntities(ctx, q)
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr, "%+v", q)
	}
}

func TestService_FindEligibleEntitiesSameDayTimes(t *testing.T) {
	s := newTestService(t, eligibilityRepo())

	got, err := s.FindEligibleEntities(context.Background(), EligibilityQuery{
		Kind:  inventory.Hotel,
		Start: time.Date(2024, 6, 12, 18, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 12, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 7, 9}, got.EntityIDs)
}

func TestService_FindEligibleEntitiesStrict(t *testing.T) {
	checker := staticChecker{ids: map[inventory.Kind][]int64{
		inventory.Hotel: {7, 9, 42},
	}}
	s := newTestService(t, eligibilityRepo(), WithStrictEligibility(checker))

	got, err := s.FindEligibleEntities(context.Background(), EligibilityQuery{
		Kind: inventory.Hotel, Start: day(2024, 6, 12), End: day(2024, 6, 15),
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 9}, got.EntityIDs)
	assert.Len(t, got.Coupons, 2)

	got, err = s.FindEligibleEntities(context.Background(), EligibilityQuery{
		Kind: inventory.Flight, Start: day(2024, 6, 12), End: day(2024, 6, 15),
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{}, got.EntityIDs)
}

func TestService_FindEligibleEntitiesStoreError(t *testing.T) {
	repo := eligibilityRepo()
	repo.listErr = errors.New("boom")
	s := newTestService(t, repo)

	_, err := s.FindEligibleEntities(context.Background(), EligibilityQuery{
		Kind: inventory.Hotel, Start: day(2024, 6, 12), End: day(2024, 6, 15),
	})
	require.Error(t, err)
	var vErr *ValidationError
	assert.False(t, errors.As(err, &vErr))
}
