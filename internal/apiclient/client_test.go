package apiclient_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/haulbook/internal/apiclient"
)

const baseURL = "http://haulbook.test"

func newClient(t *testing.T, token string) *apiclient.Client {
	t.Helper()

	httpClient := &http.Client{}
	httpmock.ActivateNonDefault(httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	return apiclient.New(apiclient.Config{
		BaseURL:    baseURL + "/",
		Token:      token,
		CacheTTL:   time.Minute,
		HTTPClient: httpClient,
	})
}

func TestReplay_SendsStoredRequest(t *testing.T) {
	c := newClient(t, "secret")

	httpmock.RegisterResponder(http.MethodPost, baseURL+"/api/v1/trips",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

			body, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			assert.JSONEq(t, `{"plateNumber":"A"}`, string(body))

			return httpmock.NewStringResponse(http.StatusCreated, `{"id":"1"}`), nil
		})

	err := c.Replay(context.Background(), http.MethodPost, "/api/v1/trips", []byte(`{"plateNumber":"A"}`))
	require.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestReplay_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "ServerError", status: http.StatusInternalServerError, body: "boom"},
		{name: "Validation", status: http.StatusUnprocessableEntity, body: "discount expenses are managed automatically"},
		{name: "NotFound", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, "")

			httpmock.RegisterResponder(http.MethodDelete, baseURL+"/api/v1/trips/9",
				httpmock.NewStringResponder(tt.status, tt.body))

			err := c.Replay(context.Background(), http.MethodDelete, "/api/v1/trips/9", nil)

			var se *apiclient.StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Equal(t, tt.body, se.Body)
			assert.NotEmpty(t, err.Error())
		})
	}
}

func TestReplay_NetworkError(t *testing.T) {
	c := newClient(t, "")

	httpmock.RegisterResponder(http.MethodPost, baseURL+"/api/v1/expenses",
		httpmock.NewErrorResponder(errors.New("connection refused")))

	err := c.Replay(context.Background(), http.MethodPost, "/api/v1/expenses", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPing(t *testing.T) {
	c := newClient(t, "")

	httpmock.RegisterResponder(http.MethodGet, baseURL+"/healthz", httpmock.NewStringResponder(http.StatusOK, "ok"))
	assert.NoError(t, c.Ping(context.Background()))

	httpmock.RegisterResponder(http.MethodGet, baseURL+"/healthz", httpmock.NewStringResponder(http.StatusServiceUnavailable, ""))
	assert.Error(t, c.Ping(context.Background()))
}

func TestReads_CachedUntilPurge(t *testing.T) {
	c := newClient(t, "")
	ctx := context.Background()

	httpmock.RegisterResponder(http.MethodGet, baseURL+"/api/v1/trips",
		httpmock.NewStringResponder(http.StatusOK, `[{"id":"t1","plateNumber":"A","basePrice":280000,"appliedPrice":250000}]`))

	trips, err := c.ListTrips(ctx)
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, int64(250000), trips[0].AppliedPrice)

	_, err = c.ListTrips(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount(), "second read served from cache")

	c.Purge()

	_, err = c.ListTrips(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestListExpenses_FiltersByTrip(t *testing.T) {
	c := newClient(t, "")

	httpmock.RegisterResponderWithQuery(http.MethodGet, baseURL+"/api/v1/expenses", "tripId=t1",
		httpmock.NewStringResponder(http.StatusOK,
			`[{"id":"e1","amount":30000,"category":{"id":"c","name":"Discount","type":"DISCOUNT"},"saleTripId":"t1"}]`))

	expenses, err := c.ListExpenses(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, "DISCOUNT", expenses[0].Category.Type)
	assert.Equal(t, int64(30000), expenses[0].Amount)
}
