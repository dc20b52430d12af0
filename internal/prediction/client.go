package prediction

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/safecity/dispatch/internal/shared/config"
	"github.com/safecity/dispatch/internal/shared/errors"
	"github.com/safecity/dispatch/internal/shared/metrics"
)

// Client talks to the external crime prediction service. Read
// endpoints retry transient failures; train is a POST and is never
// retried automatically.
type Client struct {
	http *resty.Client
}

// NewClient creates a prediction service client
func NewClient(cfg config.PredictionConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r != nil && r.Request.Method != resty.MethodGet {
				return false
			}
			return err != nil || (r != nil && r.StatusCode() >= 500)
		})

	return &Client{http: client}
}

func (c *Client) get(ctx context.Context, endpoint, path string, params map[string]string, result any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(result).
		Get(path)

	if err != nil {
		metrics.RecordPredictionRequest(endpoint, "error")
		return errors.Unavailable("prediction service", err)
	}
	if resp.IsError() {
		metrics.RecordPredictionRequest(endpoint, "error")
		return errors.Unavailable("prediction service",
			fmt.Errorf("unexpected status %s", resp.Status()))
	}

	metrics.RecordPredictionRequest(endpoint, "ok")
	return nil
}

// Hotspots returns predicted crime hotspots for a city
func (c *Client) Hotspots(ctx context.Context, city string, threshold float64, date string) ([]Hotspot, error) {
	params := map[string]string{"city": city}
	if threshold > 0 {
		params["threshold"] = formatFloat(threshold)
	}
	if date != "" {
		params["date"] = date
	}

	var out hotspotsResponse
	if err := c.get(ctx, "hotspots", "/api/hotspots", params, &out); err != nil {
		return nil, err
	}
	return out.Hotspots, nil
}

// Forecast returns crime forecasts for a city over a time window
func (c *Client) Forecast(ctx context.Context, city, timeWindow string) ([]Forecast, error) {
	params := map[string]string{"city": city}
	if timeWindow != "" {
		params["timeWindow"] = timeWindow
	}

	var out forecastResponse
	if err := c.get(ctx, "forecast", "/api/predictions", params, &out); err != nil {
		return nil, err
	}
	return out.Predictions, nil
}

// Statistics returns aggregate model statistics for a city
func (c *Client) Statistics(ctx context.Context, city string) (*Statistics, error) {
	var out Statistics
	if err := c.get(ctx, "statistics", "/api/statistics", map[string]string{"city": city}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Train kicks off a model training run. Not retried; a duplicate run
// is more expensive than a failed request.
func (c *Client) Train(ctx context.Context, req TrainRequest) (*TrainResult, error) {
	var out TrainResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/api/train")

	if err != nil {
		metrics.RecordPredictionRequest("train", "error")
		return nil, errors.Unavailable("prediction service", err)
	}
	if resp.IsError() {
		metrics.RecordPredictionRequest("train", "error")
		return nil, errors.Unavailable("prediction service",
			fmt.Errorf("unexpected status %s", resp.Status()))
	}

	metrics.RecordPredictionRequest("train", "ok")
	return &out, nil
}

// Health checks the prediction service
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/api/health")
	if err != nil {
		return errors.Unavailable("prediction service", err)
	}
	if resp.IsError() {
		return errors.Unavailable("prediction service",
			fmt.Errorf("unexpected status %s", resp.Status()))
	}
	return nil
}
