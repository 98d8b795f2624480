package gateway

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/kestrelhq/kestrel-sync/internal/model"
)

// DataPoint is one historical sensor reading.
type DataPoint struct {
	SensorID  string           `json:"sensor_id"`
	DeviceID  string           `json:"device_id"`
	Kind      model.SensorKind `json:"kind"`
	Value     float64          `json:"value"`
	Timestamp time.Time        `json:"timestamp"`
}

// Statistics summarizes a sensor's readings over a time range.
type Statistics struct {
	SensorID string  `json:"sensor_id"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Mean     float64 `json:"mean"`
	Count    int     `json:"count"`
}

// TrendPoint is one bucketed aggregate in a trend series.
type TrendPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// DataFilter narrows time-series queries. Zero-valued fields are omitted.
type DataFilter struct {
	DeviceID string
	SensorID string
	Kind     model.SensorKind
	From     time.Time
	To       time.Time
	Limit    int
}

// query renders the filter as URL query parameters.
func (f DataFilter) query() url.Values {
	q := url.Values{}
	if f.DeviceID != "" {
		q.Set("device_id", f.DeviceID)
	}
	if f.SensorID != "" {
		q.Set("sensor_id", f.SensorID)
	}
	if f.Kind != "" {
		q.Set("kind", string(f.Kind))
	}
	if !f.From.IsZero() {
		q.Set("from", f.From.UTC().Format(time.RFC3339))
	}
	if !f.To.IsZero() {
		q.Set("to", f.To.UTC().Format(time.RFC3339))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

// SensorData returns raw historical readings matching the filter.
func (c *Client) SensorData(ctx context.Context, filter DataFilter) ([]DataPoint, error) {
	var points []DataPoint
	if err := c.get(ctx, "/sensor-data/", filter.query(), &points); err != nil {
		return nil, err
	}
	return points, nil
}

// LatestSensorData returns the most recent reading per sensor matching the
// filter. The store's threshold alerting runs on these.
func (c *Client) LatestSensorData(ctx context.Context, filter DataFilter) ([]DataPoint, error) {
	var points []DataPoint
	if err := c.get(ctx, "/sensor-data/latest", filter.query(), &points); err != nil {
		return nil, err
	}
	return points, nil
}

// SensorStatistics returns aggregate statistics per sensor.
func (c *Client) SensorStatistics(ctx context.Context, filter DataFilter) ([]Statistics, error) {
	var stats []Statistics
	if err := c.get(ctx, "/sensor-data/statistics", filter.query(), &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// SensorTrends returns time-bucketed aggregates for charting.
func (c *Client) SensorTrends(ctx context.Context, filter DataFilter) ([]TrendPoint, error) {
	var points []TrendPoint
	if err := c.get(ctx, "/sensor-data/trends", filter.query(), &points); err != nil {
		return nil, err
	}
	return points, nil
}
