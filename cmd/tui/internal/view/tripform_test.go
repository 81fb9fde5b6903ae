package view

import (
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/haulbook/internal/apiclient"
	"github.com/MrJamesThe3rd/haulbook/internal/outbox"
)

func TestTripFields_ManualPrice(t *testing.T) {
	f := &tripFields{
		date:         "2026-05-04",
		plate:        " aa  12 bb",
		locationID:   "loc-1",
		basePrice:    "100",
		appliedPrice: "80,50",
		notes:        "  gravel ",
	}

	in, err := f.input(nil)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), in.TripDate)
	assert.Equal(t, "AA 12 BB", in.PlateNumber)
	assert.Equal(t, "loc-1", in.LocationID)
	assert.Nil(t, in.PricingRuleID)
	assert.Equal(t, int64(10000), in.BasePrice)
	assert.Equal(t, int64(8050), in.AppliedPrice)
	assert.Equal(t, "gravel", in.Notes)
}

func TestTripFields_RulePrice(t *testing.T) {
	rules := map[string]apiclient.PricingRule{
		"rule-1": {ID: "rule-1", LocationID: "loc-1", Price: 12000, Active: true},
	}

	f := &tripFields{date: "2026-05-04", plate: "AA", locationID: "loc-1", ruleID: "rule-1"}

	in, err := f.input(rules)
	require.NoError(t, err)

	require.NotNil(t, in.PricingRuleID)
	assert.Equal(t, "rule-1", *in.PricingRuleID)
	assert.Zero(t, in.BasePrice)
	assert.Equal(t, int64(12000), in.AppliedPrice)

	f.appliedPrice = "130"
	_, err = f.input(rules)
	assert.ErrorIs(t, err, errAppliedAboveBase)
}

func TestTripFields_InvalidBase(t *testing.T) {
	f := &tripFields{date: "2026-05-04", plate: "AA", locationID: "loc-1", basePrice: "lots"}

	_, err := f.input(nil)
	assert.ErrorIs(t, err, errInvalidAmount)
}

func TestTripFormModel_QueuesTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockReader(ctrl)
	writer := NewMockWriter(ctrl)

	locID := gofakeit.UUID()

	m := NewTripFormModel(reader, writer)
	m.fields = &tripFields{date: "2026-05-04", plate: "AA-00-BB", locationID: locID, basePrice: "50"}

	writer.EXPECT().
		CreateTrip(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, in apiclient.TripInput) (*outbox.Item, error) {
			assert.Equal(t, locID, in.LocationID)
			assert.Equal(t, int64(5000), in.BasePrice)
			assert.Equal(t, int64(5000), in.AppliedPrice)

			return &outbox.Item{ID: "item-1"}, nil
		})

	msg := m.queueCmd()()
	assert.Equal(t, queuedMsg{itemID: "item-1"}, msg)

	next, _ := m.Update(msg)
	fm := next.(TripFormModel)
	assert.Equal(t, formStateResult, fm.state)
	assert.Contains(t, fm.View(), "item-1")
}

func TestTripFormModel_RefsError(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockReader(ctrl)

	reader.EXPECT().ListLocations(gomock.Any()).Return(nil, errors.New("HTTP 503"))

	m := NewTripFormModel(reader, NewMockWriter(ctrl))

	next, _ := m.Update(m.Init()())
	fm := next.(TripFormModel)
	assert.Equal(t, formStateResult, fm.state)
	assert.Contains(t, fm.View(), "HTTP 503")
}

func TestTripFormModel_BuildsFormFromRefs(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockReader(ctrl)

	reader.EXPECT().ListLocations(gomock.Any()).Return([]apiclient.Location{{ID: "loc-1", Name: "Quarry"}}, nil)
	reader.EXPECT().ListPricingRules(gomock.Any()).Return([]apiclient.PricingRule{
		{ID: "rule-1", LocationID: "loc-1", Name: "Standard", Price: 9000, Active: true},
	}, nil)

	m := NewTripFormModel(reader, NewMockWriter(ctrl))

	next, _ := m.Update(m.Init()())
	fm := next.(TripFormModel)
	assert.Equal(t, formStateEditing, fm.state)
	require.NotNil(t, fm.form)
	assert.Contains(t, fm.rules, "rule-1")
}
