package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"econcal/internal/domain/forecast"
	"econcal/pkg/errors"
)

// Compile-time check
var _ forecast.Cache = (*ForecastCache)(nil)

const (
	forecastHashKey = "econcal:live_forecasts"
	forecastTempKey = forecastHashKey + ":next"
)

// ForecastCache keeps the live forecast set in a Redis hash keyed by
// "<currency>|<event>". A snapshot is built under a temporary key and renamed
// over the live one, so readers never observe a half-written set.
type ForecastCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewForecastCache creates a cache. A zero ttl keeps the snapshot until the next one.
func NewForecastCache(client *redis.Client, ttl time.Duration) *ForecastCache {
	return &ForecastCache{
		client: client,
		ttl:    ttl,
	}
}

func fieldOf(f forecast.LiveForecast) string {
	return f.Currency + "|" + f.Event
}

// Snapshot replaces the cached set with items
func (c *ForecastCache) Snapshot(ctx context.Context, items []forecast.LiveForecast) error {
	if len(items) == 0 {
		if err := c.client.Del(ctx, forecastHashKey).Err(); err != nil {
			return errors.Wrap(err, "failed to clear live forecast cache")
		}
		return nil
	}

	values := make(map[string]interface{}, len(items))
	for _, f := range items {
		data, err := json.Marshal(f)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal live forecast %s", fieldOf(f))
		}
		values[fieldOf(f)] = data
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, forecastTempKey)
		pipe.HSet(ctx, forecastTempKey, values)
		pipe.Rename(ctx, forecastTempKey, forecastHashKey)
		if c.ttl > 0 {
			pipe.Expire(ctx, forecastHashKey, c.ttl)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "failed to snapshot %d live forecasts to redis", len(items))
	}
	return nil
}

// Load returns the cached set. An absent snapshot yields an empty slice.
func (c *ForecastCache) Load(ctx context.Context) ([]forecast.LiveForecast, error) {
	raw, err := c.client.HGetAll(ctx, forecastHashKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read live forecast cache")
	}

	items := make([]forecast.LiveForecast, 0, len(raw))
	for field, data := range raw {
		var f forecast.LiveForecast
		if err := json.Unmarshal([]byte(data), &f); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal cached forecast %s", field)
		}
		items = append(items, f)
	}

	return forecast.NewSet(items).Items(), nil
}

// Get returns one cached forecast
func (c *ForecastCache) Get(ctx context.Context, currency, event string) (*forecast.LiveForecast, error) {
	data, err := c.client.HGet(ctx, forecastHashKey, currency+"|"+event).Result()
	if err == redis.Nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "cached forecast %s %s", currency, event)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get cached forecast %s %s", currency, event)
	}

	var f forecast.LiveForecast
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal cached forecast %s %s", currency, event)
	}
	return &f, nil
}
