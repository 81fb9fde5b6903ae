package expense_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/haulbook/internal/expense"
	httpexpense "github.com/MrJamesThe3rd/haulbook/internal/http/expense"
)

var (
	fuel     = &expense.Category{ID: uuid.MustParse("11111111-1111-4111-8111-111111111111"), Name: "Fuel", Type: expense.CategoryRegular}
	discount = &expense.Category{ID: uuid.MustParse("22222222-2222-4222-8222-222222222222"), Name: "Discount", Type: expense.CategoryDiscount}
)

func newServer(t *testing.T) (http.Handler, *expense.MockRepository) {
	repo := expense.NewMockRepository(gomock.NewController(t))
	h := httpexpense.NewHandler(expense.NewService(repo))

	r := chi.NewRouter()
	r.Route("/expenses", h.Routes)
	r.Route("/expense-categories", h.CategoryRoutes)

	return r, repo
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestHandler_Create(t *testing.T) {
	h, repo := newServer(t)

	repo.EXPECT().FindByClientKey(gomock.Any(), gomock.Any()).Return(nil, expense.ErrNotFound)
	repo.EXPECT().GetCategory(gomock.Any(), fuel.ID).Return(fuel, nil)
	repo.EXPECT().CreateExpense(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e *expense.Expense) error {
		e.ID = uuid.New()
		return nil
	})

	body := `{"categoryId":"` + fuel.ID.String() + `","amount":4500,"expenseDate":"2026-03-02T00:00:00Z","clientId":"c-1","clientCreatedAt":"2026-03-02T10:00:00Z"}`

	rec := do(h, http.MethodPost, "/expenses", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Fuel", got["category"].(map[string]any)["name"])
	assert.Equal(t, float64(4500), got["amount"])
}

func TestHandler_DiscountCategoryIsManaged(t *testing.T) {
	discountExpense := &expense.Expense{ID: uuid.New(), CategoryID: discount.ID, Category: discount, Amount: 30000}

	tests := []struct {
		name  string
		setup func(m *expense.MockRepository)
		req   func(h http.Handler) *httptest.ResponseRecorder
	}{
		{
			name: "create",
			setup: func(m *expense.MockRepository) {
				m.EXPECT().GetCategory(gomock.Any(), discount.ID).Return(discount, nil)
			},
			req: func(h http.Handler) *httptest.ResponseRecorder {
				return do(h, http.MethodPost, "/expenses", `{"categoryId":"`+discount.ID.String()+`","amount":100,"expenseDate":"2026-03-02T00:00:00Z"}`)
			},
		},
		{
			name: "update",
			setup: func(m *expense.MockRepository) {
				m.EXPECT().GetExpense(gomock.Any(), discountExpense.ID).Return(discountExpense, nil)
			},
			req: func(h http.Handler) *httptest.ResponseRecorder {
				return do(h, http.MethodPatch, "/expenses/"+discountExpense.ID.String(), `{"amount":1}`)
			},
		},
		{
			name: "delete",
			setup: func(m *expense.MockRepository) {
				m.EXPECT().GetExpense(gomock.Any(), discountExpense.ID).Return(discountExpense, nil)
			},
			req: func(h http.Handler) *httptest.ResponseRecorder {
				return do(h, http.MethodDelete, "/expenses/"+discountExpense.ID.String(), "")
			},
		},
		{
			name:  "category",
			setup: func(*expense.MockRepository) {},
			req: func(h http.Handler) *httptest.ResponseRecorder {
				return do(h, http.MethodPost, "/expense-categories", `{"name":"Promo","type":"DISCOUNT"}`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, repo := newServer(t)
			tt.setup(repo)

			rec := tt.req(h)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, rec.Body.String(), expense.ErrDiscountManaged.Error())
		})
	}
}

func TestHandler_ListByTrip(t *testing.T) {
	h, repo := newServer(t)

	tripID := uuid.New()
	repo.EXPECT().ListExpenses(gomock.Any(), expense.ListFilter{SaleTripID: &tripID}).
		Return([]*expense.Expense{{ID: uuid.New(), Category: discount, CategoryID: discount.ID, Amount: 30000, SaleTripID: &tripID}}, nil)

	rec := do(h, http.MethodGet, "/expenses?tripId="+tripID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, tripID.String(), got[0]["saleTripId"])
	assert.Equal(t, "DISCOUNT", got[0]["category"].(map[string]any)["type"])

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/expenses?tripId=nope", "").Code)
}

func TestHandler_CreateValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `[`, http.StatusBadRequest},
		{"zero amount", `{"categoryId":"` + fuel.ID.String() + `","amount":0,"expenseDate":"2026-03-02T00:00:00Z"}`, http.StatusUnprocessableEntity},
		{"no date", `{"categoryId":"` + fuel.ID.String() + `","amount":10}`, http.StatusUnprocessableEntity},
		{"no category", `{"amount":10,"expenseDate":"2026-03-02T00:00:00Z"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newServer(t)
			assert.Equal(t, tt.want, do(h, http.MethodPost, "/expenses", tt.body).Code)
		})
	}
}

func TestHandler_Categories(t *testing.T) {
	h, repo := newServer(t)

	repo.EXPECT().ListCategories(gomock.Any()).Return([]*expense.Category{discount, fuel}, nil)
	repo.EXPECT().CreateCategory(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, c *expense.Category) error {
		assert.Equal(t, expense.CategoryRegular, c.Type)
		c.ID = uuid.New()

		return nil
	})

	rec := do(h, http.MethodGet, "/expense-categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Fuel"`)

	rec = do(h, http.MethodPost, "/expense-categories", `{"name":"Parking"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(h, http.MethodPost, "/expense-categories", `{"name":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandler_GetNotFound(t *testing.T) {
	h, repo := newServer(t)

	id := uuid.New()
	repo.EXPECT().GetExpense(gomock.Any(), id).Return(nil, expense.ErrNotFound)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/expenses/"+id.String(), "").Code)
}
