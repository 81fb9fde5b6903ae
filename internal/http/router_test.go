package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/haulbook/internal/expense"
	api "github.com/MrJamesThe3rd/haulbook/internal/http"
	"github.com/MrJamesThe3rd/haulbook/internal/http/auth"
	httpexpense "github.com/MrJamesThe3rd/haulbook/internal/http/expense"
	"github.com/MrJamesThe3rd/haulbook/internal/http/importcsv"
	httppricing "github.com/MrJamesThe3rd/haulbook/internal/http/pricing"
	httptrip "github.com/MrJamesThe3rd/haulbook/internal/http/trip"
	"github.com/MrJamesThe3rd/haulbook/internal/importer"
	"github.com/MrJamesThe3rd/haulbook/internal/pricing"
	"github.com/MrJamesThe3rd/haulbook/internal/trip"
)

const secret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	handler  http.Handler
	trips    *trip.MockRepository
	expenses *expense.MockRepository
}

func newRouter(t *testing.T, opts api.Options) fixture {
	ctrl := gomock.NewController(t)

	f := fixture{
		trips:    trip.NewMockRepository(ctrl),
		expenses: expense.NewMockRepository(ctrl),
	}

	expenseSvc := expense.NewService(f.expenses)
	tripSvc := trip.NewService(f.trips, trip.NewMockPriceResolver(ctrl), trip.NewMockTxRunner(ctrl), trip.NewMockDiscountReconciler(ctrl))

	f.handler = api.New(opts,
		httptrip.NewHandler(tripSvc),
		httpexpense.NewHandler(expenseSvc),
		httppricing.NewHandler(pricing.NewService(pricing.NewMockRepository(ctrl))),
		importcsv.NewHandler(importer.NewService(expenseSvc), expenseSvc),
	)

	return f
}

func TestRouter_Healthz(t *testing.T) {
	var fail bool

	f := newRouter(t, api.Options{Health: func(context.Context) error {
		if fail {
			return errors.New("db down")
		}

		return nil
	}})

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	fail = true
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_AuthGuardsAPIOnly(t *testing.T) {
	m := auth.NewManager(secret, "haulbook")
	f := newRouter(t, api.Options{Auth: m})

	f.trips.EXPECT().ListTrips(gomock.Any(), gomock.Any()).Return([]*trip.Trip{{ID: uuid.New()}}, nil)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := m.Issue("truck-7", 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RejectsNonJSONWrites(t *testing.T) {
	f := newRouter(t, api.Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/expenses", strings.NewReader("amount=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	f := newRouter(t, api.Options{AllowedOrigins: []string{"https://office.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/trips", nil)
	req.Header.Set("Origin", "https://office.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, "https://office.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
