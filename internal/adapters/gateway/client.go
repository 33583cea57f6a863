package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

var _ domain.MetricsSource = (*Client)(nil)

// Client reads metric families from a running fitdash server over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Fetch(ctx context.Context, family domain.MetricFamily, dr *domain.DateRange) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/api/v1/metrics/%s", c.baseURL, family)

	if dr != nil && family.Dated() {
		q := url.Values{}
		q.Set("startDate", dr.StartString())
		if !dr.IsSingleDay() {
			q.Set("endDate", dr.EndString())
		}
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &domain.UpstreamError{Family: family, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Family: family, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &domain.UpstreamError{Family: family, StatusCode: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, domain.ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return nil, &domain.UpstreamError{Family: family, StatusCode: resp.StatusCode, Err: errors.New(errorMessage(body))}
	case !json.Valid(body):
		return nil, &domain.UpstreamError{Family: family, StatusCode: resp.StatusCode, Err: errors.New("invalid json body")}
	}

	return json.RawMessage(body), nil
}

func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return "unexpected response"
}
