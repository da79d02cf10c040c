// Package `inventory` queries the service inventory REST API for services
// by request id or by delivery date range.
//
// The API returns JSON lists of services.  The fields that tierarch uses
// are:
//
// ```
// [
//   {
//     "serviceRequestNumber": "SRVCNM584",
//     "serviceStatus": "delivered",
//     "serviceDelivered": "2023-01-25",
//     "serviceUserId": {
//       "profile": {
//         "profileCenter": "CNM",
//         "profileClassificationArea": "Virologia"
//       }
//     }
//   }
// ]
// ```
//
// A 404 response and an empty list both map to `ErrNotFound`.
package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bu-isciii/tierarch/backend/internal/services"
)

var ErrNotFound = errors.New("no matching services")
var ErrMalformedResponse = errors.New("malformed inventory response")

const DateLayout = "2006-01-02"

const StateDelivered = "delivered"

type Config struct {
	URL     string
	Token   string
	Timeout time.Duration
	// `HTTPClient` is optional.
	HTTPClient *http.Client
}

type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

type apiService struct {
	RequestNumber string `json:"serviceRequestNumber"`
	Status        string `json:"serviceStatus"`
	Delivered     string `json:"serviceDelivered"`
	UserId        struct {
		Profile struct {
			Center string `json:"profileCenter"`
			Area   string `json:"profileClassificationArea"`
		} `json:"profile"`
	} `json:"serviceUserId"`
}

func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("missing inventory URL")
	}
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid inventory URL: %v", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		base:  base,
		token: cfg.Token,
		http:  hc,
	}, nil
}

// `Service()` returns the record for one request id.
func (c *Client) Service(
	ctx context.Context, requestId string,
) ([]services.Record, error) {
	q := url.Values{}
	q.Set("service", requestId)
	return c.get(ctx, "serviceFullData/", q)
}

// `Delivered()` returns delivered services whose delivery date is in the
// inclusive range `[from, until]`.
func (c *Client) Delivered(
	ctx context.Context, from, until time.Time,
) ([]services.Record, error) {
	q := url.Values{}
	q.Set("state", StateDelivered)
	q.Set("date_from", from.Format(DateLayout))
	q.Set("date_until", until.Format(DateLayout))
	return c.get(ctx, "services/", q)
}

func (c *Client) get(
	ctx context.Context, endpoint string, q url.Values,
) ([]services.Record, error) {
	u := c.base.ResolveReference(&url.URL{Path: endpoint})
	u.RawQuery = q.Encode()

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inventory request failed: %w", err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(ioutil.Discard, res.Body)
		return nil, ErrNotFound
	case res.StatusCode != http.StatusOK:
		msg, _ := ioutil.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf(
			"inventory returned %s: %s",
			res.Status, strings.TrimSpace(string(msg)),
		)
	}

	dat, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory response: %w", err)
	}
	return parseServices(dat)
}

// `parseServices()` accepts a list or a single object.
func parseServices(dat []byte) ([]services.Record, error) {
	var list []apiService
	if err := json.Unmarshal(dat, &list); err != nil {
		var one apiService
		if err2 := json.Unmarshal(dat, &one); err2 != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		list = []apiService{one}
	}

	recs := make([]services.Record, 0, len(list))
	for _, s := range list {
		if s.RequestNumber == "" {
			return nil, fmt.Errorf(
				"%w: missing `serviceRequestNumber`",
				ErrMalformedResponse,
			)
		}
		if s.UserId.Profile.Center == "" {
			return nil, fmt.Errorf(
				"%w: service `%s` without profile center",
				ErrMalformedResponse, s.RequestNumber,
			)
		}
		r := services.Record{
			RequestId: s.RequestNumber,
			Center:    s.UserId.Profile.Center,
			Area:      s.UserId.Profile.Area,
		}
		if s.Delivered != "" {
			t, err := time.Parse(DateLayout, s.Delivered)
			if err != nil {
				return nil, fmt.Errorf(
					"%w: service `%s` delivery date: %v",
					ErrMalformedResponse, s.RequestNumber, err,
				)
			}
			r.Delivered = t
		}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		recs = append(recs, r)
	}

	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs, nil
}
