package pricing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/haulbook/internal/pricing"
)

func TestService_ResolvePrice(t *testing.T) {
	locationID := uuid.New()
	ruleID := uuid.New()

	type testCase struct {
		name      string
		setupMock func(m *pricing.MockRepository)
		want      int64
		wantErr   error
	}

	tests := []testCase{
		{
			name: "ActiveRule",
			setupMock: func(m *pricing.MockRepository) {
				m.EXPECT().GetRule(gomock.Any(), ruleID).
					Return(&pricing.Rule{ID: ruleID, LocationID: locationID, Price: 280000, Active: true}, nil)
			},
			want: 280000,
		},
		{
			name: "InactiveRule",
			setupMock: func(m *pricing.MockRepository) {
				m.EXPECT().GetRule(gomock.Any(), ruleID).
					Return(&pricing.Rule{ID: ruleID, LocationID: locationID, Price: 280000}, nil)
			},
			wantErr: pricing.ErrInactiveRule,
		},
		{
			name: "OtherLocation",
			setupMock: func(m *pricing.MockRepository) {
				m.EXPECT().GetRule(gomock.Any(), ruleID).
					Return(&pricing.Rule{ID: ruleID, LocationID: uuid.New(), Price: 1, Active: true}, nil)
			},
			wantErr: pricing.ErrNotFound,
		},
		{
			name: "MissingRule",
			setupMock: func(m *pricing.MockRepository) {
				m.EXPECT().GetRule(gomock.Any(), ruleID).Return(nil, pricing.ErrNotFound)
			},
			wantErr: pricing.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := pricing.NewMockRepository(ctrl)
			tt.setupMock(repo)

			got, err := pricing.NewService(repo).ResolvePrice(context.Background(), ruleID, locationID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_CreateRule(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := pricing.NewMockRepository(ctrl)
	locationID := uuid.New()

	repo.EXPECT().GetLocation(gomock.Any(), locationID).Return(&pricing.Location{ID: locationID, Name: "Port"}, nil)
	repo.EXPECT().CreateRule(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, r *pricing.Rule) error {
		r.ID = uuid.New()
		return nil
	})

	rule, err := pricing.NewService(repo).CreateRule(context.Background(), pricing.CreateRuleParams{
		LocationID: locationID,
		Name:       "  Port run ",
		Price:      280000,
	})
	require.NoError(t, err)
	assert.True(t, rule.Active)
	assert.Equal(t, "Port run", rule.Name)
	assert.NotEqual(t, uuid.Nil, rule.ID)
}

func TestService_CreateRuleUnknownLocation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := pricing.NewMockRepository(ctrl)
	repo.EXPECT().GetLocation(gomock.Any(), gomock.Any()).Return(nil, pricing.ErrNotFound)

	_, err := pricing.NewService(repo).CreateRule(context.Background(), pricing.CreateRuleParams{LocationID: uuid.New()})
	assert.True(t, errors.Is(err, pricing.ErrNotFound))
}

func TestService_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := pricing.NewService(pricing.NewMockRepository(ctrl))

	_, err := svc.CreateLocation(context.Background(), "   ")
	assert.ErrorIs(t, err, pricing.ErrValidation)

	_, err = svc.CreateRule(context.Background(), pricing.CreateRuleParams{LocationID: uuid.New(), Name: "x", Price: -1})
	assert.ErrorIs(t, err, pricing.ErrValidation)
}
