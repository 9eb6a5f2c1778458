package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/smallbiznis/tradesmap/internal/geocoding/domain"
	obslogger "github.com/smallbiznis/tradesmap/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	invalidPostcodeMessage = "invalid postcode"
	maxResponseBytes       = 64 << 10
)

// Client resolves postal codes against a postcodes.io compatible API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func New(baseURL string, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		log:        log.Named("geocoding.client"),
	}
}

var _ domain.Gateway = (*Client)(nil)

type lookupResponse struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Result *struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"result"`
}

func (c *Client) Resolve(ctx context.Context, postalCode string) (domain.Coordinates, error) {
	code := domain.NormalizePostalCode(postalCode)
	if code == "" {
		return domain.Coordinates{}, domain.ErrInvalidPostalCode
	}

	endpoint := c.baseURL + "/postcodes/" + url.PathEscape(code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		obslogger.WithContext(ctx, c.log).Warn("geocoding request failed", zap.Error(err))
		return domain.Coordinates{}, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}

	var payload lookupResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.Coordinates{}, fmt.Errorf("%w: status %d with unreadable body", domain.ErrUnavailable, resp.StatusCode)
	}

	if strings.EqualFold(strings.TrimSpace(payload.Error), invalidPostcodeMessage) {
		return domain.Coordinates{}, domain.ErrInvalidPostalCode
	}
	if resp.StatusCode != http.StatusOK || payload.Error != "" {
		obslogger.WithContext(ctx, c.log).Warn("geocoding provider error",
			zap.Int("status", resp.StatusCode),
			zap.String("provider_error", payload.Error),
		)
		return domain.Coordinates{}, fmt.Errorf("%w: status %d %s", domain.ErrUnavailable, resp.StatusCode, payload.Error)
	}
	if payload.Result == nil || payload.Result.Latitude == nil || payload.Result.Longitude == nil {
		return domain.Coordinates{}, fmt.Errorf("%w: result without coordinates", domain.ErrUnavailable)
	}

	return domain.Coordinates{
		Latitude:  *payload.Result.Latitude,
		Longitude: *payload.Result.Longitude,
	}, nil
}
