package trip_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/haulbook/internal/idempotency"
	"github.com/MrJamesThe3rd/haulbook/internal/pricing"
	"github.com/MrJamesThe3rd/haulbook/internal/trip"
)

type mocks struct {
	repo      *trip.MockRepository
	prices    *trip.MockPriceResolver
	tx        *trip.MockTxRunner
	discounts *trip.MockDiscountReconciler
}

func newMocks(ctrl *gomock.Controller) mocks {
	m := mocks{
		repo:      trip.NewMockRepository(ctrl),
		prices:    trip.NewMockPriceResolver(ctrl),
		tx:        trip.NewMockTxRunner(ctrl),
		discounts: trip.NewMockDiscountReconciler(ctrl),
	}

	m.tx.EXPECT().RunInTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		}).AnyTimes()

	return m
}

func (m mocks) service() *trip.Service {
	return trip.NewService(m.repo, m.prices, m.tx, m.discounts)
}

func baseParams() trip.CreateParams {
	return trip.CreateParams{
		TripDate:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PlateNumber:  " b 1234  xy ",
		LocationID:   uuid.New(),
		BasePrice:    280000,
		AppliedPrice: 250000,
	}
}

func TestService_Create(t *testing.T) {
	key := idempotency.Key{
		ClientID:        "c-1",
		ClientCreatedAt: time.Date(2026, 3, 1, 8, 0, 0, 123456789, time.UTC),
	}
	storedKey := idempotency.Key{ClientID: "c-1", ClientCreatedAt: idempotency.Normalize(key.ClientCreatedAt)}
	existingID := uuid.New()
	ruleID := uuid.New()

	type testCase struct {
		name        string
		params      func() trip.CreateParams
		setupMock   func(m mocks)
		wantCreated bool
		wantID      *uuid.UUID
		wantBase    int64
		wantErr     error
	}

	tests := []testCase{
		{
			name: "NewTripWithKey",
			params: func() trip.CreateParams {
				p := baseParams()
				p.Key = &key

				return p
			},
			setupMock: func(m mocks) {
				m.repo.EXPECT().FindByClientKey(gomock.Any(), storedKey).Return(nil, trip.ErrNotFound)
				m.repo.EXPECT().EnsureVehicle(gomock.Any(), "B 1234 XY").Return(nil)
				m.repo.EXPECT().CreateTrip(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, tr *trip.Trip) error {
					assert.Equal(t, &storedKey, tr.Key)

					tr.ID = uuid.New()

					return nil
				})
				m.discounts.EXPECT().ReconcileDiscount(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantCreated: true,
			wantBase:    280000,
		},
		{
			name: "DuplicateKeyReturnsExisting",
			params: func() trip.CreateParams {
				p := baseParams()
				p.Key = &key

				return p
			},
			setupMock: func(m mocks) {
				m.repo.EXPECT().FindByClientKey(gomock.Any(), storedKey).
					Return(&trip.Trip{ID: existingID, BasePrice: 280000, Key: &storedKey}, nil)
			},
			wantCreated: false,
			wantID:      &existingID,
			wantBase:    280000,
		},
		{
			name: "ConcurrentInsertRefetches",
			params: func() trip.CreateParams {
				p := baseParams()
				p.Key = &key

				return p
			},
			setupMock: func(m mocks) {
				gomock.InOrder(
					m.repo.EXPECT().FindByClientKey(gomock.Any(), storedKey).Return(nil, trip.ErrNotFound),
					m.repo.EXPECT().FindByClientKey(gomock.Any(), storedKey).
						Return(&trip.Trip{ID: existingID, BasePrice: 280000}, nil),
				)
				m.repo.EXPECT().EnsureVehicle(gomock.Any(), gomock.Any()).Return(nil)
				m.repo.EXPECT().CreateTrip(gomock.Any(), gomock.Any()).Return(trip.ErrAlreadyExists)
			},
			wantCreated: false,
			wantID:      &existingID,
			wantBase:    280000,
		},
		{
			name:   "WithoutKeySkipsLookup",
			params: baseParams,
			setupMock: func(m mocks) {
				m.repo.EXPECT().EnsureVehicle(gomock.Any(), gomock.Any()).Return(nil)
				m.repo.EXPECT().CreateTrip(gomock.Any(), gomock.Any()).Return(nil)
				m.discounts.EXPECT().ReconcileDiscount(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantCreated: true,
			wantBase:    280000,
		},
		{
			name: "BasePriceFromRule",
			params: func() trip.CreateParams {
				p := baseParams()
				p.PricingRuleID = &ruleID
				p.BasePrice = 0

				return p
			},
			setupMock: func(m mocks) {
				m.prices.EXPECT().ResolvePrice(gomock.Any(), ruleID, gomock.Any()).Return(int64(300000), nil)
				m.repo.EXPECT().EnsureVehicle(gomock.Any(), gomock.Any()).Return(nil)
				m.repo.EXPECT().CreateTrip(gomock.Any(), gomock.Any()).Return(nil)
				m.discounts.EXPECT().ReconcileDiscount(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantCreated: true,
			wantBase:    300000,
		},
		{
			name: "UnknownRule",
			params: func() trip.CreateParams {
				p := baseParams()
				p.PricingRuleID = &ruleID

				return p
			},
			setupMock: func(m mocks) {
				m.prices.EXPECT().ResolvePrice(gomock.Any(), ruleID, gomock.Any()).Return(int64(0), fmt.Errorf("loading pricing rule: %w", pricing.ErrNotFound))
			},
			wantErr: trip.ErrValidation,
		},
		{
			name: "InactiveRule",
			params: func() trip.CreateParams {
				p := baseParams()
				p.PricingRuleID = &ruleID

				return p
			},
			setupMock: func(m mocks) {
				m.prices.EXPECT().ResolvePrice(gomock.Any(), ruleID, gomock.Any()).Return(int64(0), pricing.ErrInactiveRule)
			},
			wantErr: trip.ErrValidation,
		},
		{
			name: "RuleLookupFails",
			params: func() trip.CreateParams {
				p := baseParams()
				p.PricingRuleID = &ruleID

				return p
			},
			setupMock: func(m mocks) {
				m.prices.EXPECT().ResolvePrice(gomock.Any(), ruleID, gomock.Any()).Return(int64(0), errors.New("loading pricing rule: connection refused"))
			},
			wantErr: errors.New("connection refused"),
		},
		{
			name: "MissingPlate",
			params: func() trip.CreateParams {
				p := baseParams()
				p.PlateNumber = "   "

				return p
			},
			setupMock: func(mocks) {},
			wantErr:   trip.ErrValidation,
		},
		{
			name:   "DiscountFailureRollsBack",
			params: baseParams,
			setupMock: func(m mocks) {
				m.repo.EXPECT().EnsureVehicle(gomock.Any(), gomock.Any()).Return(nil)
				m.repo.EXPECT().CreateTrip(gomock.Any(), gomock.Any()).Return(nil)
				m.discounts.EXPECT().ReconcileDiscount(gomock.Any(), gomock.Any()).Return(errors.New("db down"))
			},
			wantErr: errors.New("db down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			m := newMocks(ctrl)
			tt.setupMock(m)

			got, created, err := m.service().Create(context.Background(), tt.params())
			if tt.wantErr != nil {
				require.Error(t, err)

				if errors.Is(tt.wantErr, trip.ErrValidation) {
					assert.ErrorIs(t, err, trip.ErrValidation)
				} else {
					assert.NotErrorIs(t, err, trip.ErrValidation)
					assert.ErrorContains(t, err, tt.wantErr.Error())
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantCreated, created)
			assert.Equal(t, tt.wantBase, got.BasePrice)

			if tt.wantID != nil {
				assert.Equal(t, *tt.wantID, got.ID)
			}
		})
	}
}

func TestService_CreateNormalisesPlate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newMocks(ctrl)
	m.repo.EXPECT().EnsureVehicle(gomock.Any(), "B 1234 XY").Return(nil)
	m.repo.EXPECT().CreateTrip(gomock.Any(), gomock.Any()).Return(nil)
	m.discounts.EXPECT().ReconcileDiscount(gomock.Any(), gomock.Any()).Return(nil)

	got, _, err := m.service().Create(context.Background(), baseParams())
	require.NoError(t, err)
	assert.Equal(t, "B 1234 XY", got.PlateNumber)
	assert.Equal(t, int64(30000), got.Discount())
}

func TestService_Update(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newMocks(ctrl)
	id := uuid.New()

	m.repo.EXPECT().GetTrip(gomock.Any(), id).Return(&trip.Trip{
		ID:           id,
		TripDate:     time.Now(),
		PlateNumber:  "A",
		LocationID:   uuid.New(),
		BasePrice:    280000,
		AppliedPrice: 250000,
	}, nil)
	m.repo.EXPECT().UpdateTrip(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, tr *trip.Trip) error {
		assert.Equal(t, int64(280000), tr.AppliedPrice)
		return nil
	})
	m.discounts.EXPECT().ReconcileDiscount(gomock.Any(), id).Return(nil)

	got, err := m.service().Update(context.Background(), id, trip.UpdateParams{AppliedPrice: new(int64(280000))})
	require.NoError(t, err)
	assert.Zero(t, got.Discount())
}

func TestService_UpdateNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newMocks(ctrl)
	m.repo.EXPECT().GetTrip(gomock.Any(), gomock.Any()).Return(nil, trip.ErrNotFound)

	_, err := m.service().Update(context.Background(), uuid.New(), trip.UpdateParams{})
	assert.ErrorIs(t, err, trip.ErrNotFound)
}

func TestService_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newMocks(ctrl)
	id := uuid.New()

	gomock.InOrder(
		m.repo.EXPECT().DeleteTrip(gomock.Any(), id).Return(nil),
		m.discounts.EXPECT().RemoveDiscount(gomock.Any(), id).Return(nil),
	)

	require.NoError(t, m.service().Delete(context.Background(), id))
}
