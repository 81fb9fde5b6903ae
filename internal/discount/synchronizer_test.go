package discount_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/haulbook/internal/discount"
	"github.com/MrJamesThe3rd/haulbook/internal/expense"
	"github.com/MrJamesThe3rd/haulbook/internal/trip"
)

func newTrip(base, applied int64) *trip.Trip {
	return &trip.Trip{
		ID:           uuid.New(),
		TripDate:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PlateNumber:  "B 1234 XY",
		LocationID:   uuid.New(),
		BasePrice:    base,
		AppliedPrice: applied,
	}
}

func TestReconcileDiscount(t *testing.T) {
	categoryID := uuid.New()

	type testCase struct {
		name      string
		trip      *trip.Trip
		setupMock func(tr *discount.MockTripReader, ex *discount.MockExpenseRepository, t *trip.Trip)
		wantErr   bool
	}

	tests := []testCase{
		{
			name: "CreatesDiscountForReducedPrice",
			trip: newTrip(280000, 250000),
			setupMock: func(tr *discount.MockTripReader, ex *discount.MockExpenseRepository, tp *trip.Trip) {
				tr.EXPECT().GetTrip(gomock.Any(), tp.ID).Return(tp, nil)
				ex.EXPECT().FindDiscountExpense(gomock.Any(), tp.ID).Return(nil, expense.ErrNotFound)
				ex.EXPECT().DiscountCategoryID(gomock.Any()).Return(categoryID, nil)
				ex.EXPECT().CreateExpense(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e *expense.Expense) error {
					assert.Equal(t, int64(30000), e.Amount)
					assert.Equal(t, categoryID, e.CategoryID)
					assert.Equal(t, tp.ID, *e.SaleTripID)
					assert.Equal(t, tp.LocationID, *e.LocationID)
					assert.Equal(t, tp.PlateNumber, e.RelatedPlateNumber)
					assert.True(t, e.ExpenseDate.Equal(tp.TripDate))

					return nil
				})
			},
		},
		{
			name: "UpdatesExistingInPlace",
			trip: newTrip(280000, 200000),
			setupMock: func(tr *discount.MockTripReader, ex *discount.MockExpenseRepository, tp *trip.Trip) {
				existing := &expense.Expense{ID: uuid.New(), Amount: 30000, ExpenseDate: tp.TripDate, SaleTripID: &tp.ID}

				tr.EXPECT().GetTrip(gomock.Any(), tp.ID).Return(tp, nil)
				ex.EXPECT().FindDiscountExpense(gomock.Any(), tp.ID).Return(existing, nil)
				ex.EXPECT().UpdateExpense(gomock.Any(), existing).DoAndReturn(func(_ context.Context, e *expense.Expense) error {
					assert.Equal(t, int64(80000), e.Amount)
					return nil
				})
			},
		},
		{
			name: "UnchangedIsNoop",
			trip: newTrip(280000, 250000),
			setupMock: func(tr *discount.MockTripReader, ex *discount.MockExpenseRepository, tp *trip.Trip) {
				existing := &expense.Expense{
					ID:                 uuid.New(),
					Amount:             30000,
					ExpenseDate:        tp.TripDate,
					LocationID:         &tp.LocationID,
					RelatedPlateNumber: tp.PlateNumber,
				}

				tr.EXPECT().GetTrip(gomock.Any(), tp.ID).Return(tp, nil)
				ex.EXPECT().FindDiscountExpense(gomock.Any(), tp.ID).Return(existing, nil)
			},
		},
		{
			name: "NoDiscountNoExpense",
			trip: newTrip(280000, 280000),
			setupMock: func(tr *discount.MockTripReader, ex *discount.MockExpenseRepository, tp *trip.Trip) {
				tr.EXPECT().GetTrip(gomock.Any(), tp.ID).Return(tp, nil)
				ex.EXPECT().FindDiscountExpense(gomock.Any(), tp.ID).Return(nil, expense.ErrNotFound)
			},
		},
		{
			name: "DiscountGoneDeletesExpense",
			trip: newTrip(280000, 280000),
			setupMock: func(tr *discount.MockTripReader, ex *discount.MockExpenseRepository, tp *trip.Trip) {
				existingID := uuid.New()

				tr.EXPECT().GetTrip(gomock.Any(), tp.ID).Return(tp, nil)
				ex.EXPECT().FindDiscountExpense(gomock.Any(), tp.ID).Return(&expense.Expense{ID: existingID, Amount: 30000}, nil)
				ex.EXPECT().DeleteExpense(gomock.Any(), existingID).Return(nil)
			},
		},
		{
			name: "SurchargeDeletesExpense",
			trip: newTrip(250000, 280000),
			setupMock: func(tr *discount.MockTripReader, ex *discount.MockExpenseRepository, tp *trip.Trip) {
				existingID := uuid.New()

				tr.EXPECT().GetTrip(gomock.Any(), tp.ID).Return(tp, nil)
				ex.EXPECT().FindDiscountExpense(gomock.Any(), tp.ID).Return(&expense.Expense{ID: existingID}, nil)
				ex.EXPECT().DeleteExpense(gomock.Any(), existingID).Return(nil)
			},
		},
		{
			name: "MissingTripIsNoop",
			trip: newTrip(1, 0),
			setupMock: func(tr *discount.MockTripReader, _ *discount.MockExpenseRepository, tp *trip.Trip) {
				tr.EXPECT().GetTrip(gomock.Any(), tp.ID).Return(nil, trip.ErrNotFound)
			},
		},
		{
			name: "LookupError",
			trip: newTrip(280000, 250000),
			setupMock: func(tr *discount.MockTripReader, ex *discount.MockExpenseRepository, tp *trip.Trip) {
				tr.EXPECT().GetTrip(gomock.Any(), tp.ID).Return(tp, nil)
				ex.EXPECT().FindDiscountExpense(gomock.Any(), tp.ID).Return(nil, errors.New("conn reset"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			trips := discount.NewMockTripReader(ctrl)
			expenses := discount.NewMockExpenseRepository(ctrl)
			tt.setupMock(trips, expenses, tt.trip)

			err := discount.NewSynchronizer(trips, expenses).ReconcileDiscount(context.Background(), tt.trip.ID)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestRemoveDiscount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	trips := discount.NewMockTripReader(ctrl)
	expenses := discount.NewMockExpenseRepository(ctrl)
	sync := discount.NewSynchronizer(trips, expenses)

	withDiscount := uuid.New()
	withoutDiscount := uuid.New()
	expenseID := uuid.New()

	expenses.EXPECT().FindDiscountExpense(gomock.Any(), withDiscount).Return(&expense.Expense{ID: expenseID}, nil)
	expenses.EXPECT().DeleteExpense(gomock.Any(), expenseID).Return(nil)
	expenses.EXPECT().FindDiscountExpense(gomock.Any(), withoutDiscount).Return(nil, expense.ErrNotFound)

	require.NoError(t, sync.RemoveDiscount(context.Background(), withDiscount))
	require.NoError(t, sync.RemoveDiscount(context.Background(), withoutDiscount))
}
