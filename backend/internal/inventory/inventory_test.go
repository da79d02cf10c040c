package inventory_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bu-isciii/tierarch/backend/internal/inventory"
	"github.com/stretchr/testify/require"
)

const twoServices = `[
  {
    "serviceRequestNumber": "SRVCNM584",
    "serviceStatus": "delivered",
    "serviceDelivered": "2023-01-25",
    "serviceUserId": {"profile": {
      "profileCenter": "CNM", "profileClassificationArea": "Virologia"
    }}
  },
  {
    "serviceRequestNumber": "SRVIIER102",
    "serviceStatus": "delivered",
    "serviceUserId": {"profile": {"profileCenter": "IIER"}}
  }
]`

func newClient(t *testing.T, h http.HandlerFunc) *inventory.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := inventory.New(inventory.Config{
		URL:     srv.URL + "/drylab/api",
		Token:   "s3cret",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return c
}

func TestDelivered(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/drylab/api/services/", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "delivered", q.Get("state"))
		require.Equal(t, "2023-01-01", q.Get("date_from"))
		require.Equal(t, "2023-01-31", q.Get("date_until"))
		require.Equal(t, "Token s3cret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(twoServices))
	})

	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)
	recs, err := c.Delivered(context.Background(), from, until)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	require.Equal(t, "SRVCNM584", recs[0].RequestId)
	require.Equal(t, "CNM", recs[0].Center)
	require.Equal(t, "Virologia", recs[0].Area)
	require.Equal(t, time.Date(2023, 1, 25, 0, 0, 0, 0, time.UTC), recs[0].Delivered)

	require.Equal(t, "SRVIIER102", recs[1].RequestId)
	require.Equal(t, "", recs[1].Area)
	require.True(t, recs[1].Delivered.IsZero())
}

func TestServiceSingleObject(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/drylab/api/serviceFullData/", r.URL.Path)
		require.Equal(t, "SRVCNM584", r.URL.Query().Get("service"))
		_, _ = w.Write([]byte(`{
			"serviceRequestNumber": "SRVCNM584",
			"serviceUserId": {"profile": {"profileCenter": "CNM"}}
		}`))
	})

	recs, err := c.Service(context.Background(), "SRVCNM584")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "SRVCNM584", recs[0].RequestId)
}

func TestNotFound(t *testing.T) {
	for _, h := range []http.HandlerFunc{
		func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		},
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		},
	} {
		c := newClient(t, h)
		_, err := c.Service(context.Background(), "SRVX")
		require.Equal(t, inventory.ErrNotFound, err)
	}
}

func TestErrors(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	_, err := c.Service(context.Background(), "SRVX")
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")

	for _, body := range []string{
		`not json`,
		`[{"serviceUserId": {"profile": {"profileCenter": "CNM"}}}]`,
		`[{"serviceRequestNumber": "SRV1"}]`,
		`[{"serviceRequestNumber": "../SRV1",
		   "serviceUserId": {"profile": {"profileCenter": "CNM"}}}]`,
		`[{"serviceRequestNumber": "SRV1", "serviceDelivered": "25/01/2023",
		   "serviceUserId": {"profile": {"profileCenter": "CNM"}}}]`,
	} {
		body := body
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		_, err := c.Service(context.Background(), "SRV1")
		require.True(t, errors.Is(err, inventory.ErrMalformedResponse), body)
	}
}
