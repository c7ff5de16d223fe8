package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/model"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/scheduling"
)

const (
	keyPrefix     = "scheduling:catalog:"
	keyServices   = keyPrefix + "services"
	keyStaffTypes = keyPrefix + "staff-types"
	// Staff listings live in one hash, field = type filter, so a staff change drops them all.
	keyStaffLists = keyPrefix + "staff-lists"
)

// Cache is a read-through Redis cache in front of a Catalog. Redis failures are
// logged and the read falls through to the backing catalog.
type Cache struct {
	next   scheduling.Catalog
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(next scheduling.Catalog, rdb redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func serviceKey(id string) string { return keyPrefix + "service:" + id }
func staffKey(id string) string   { return keyPrefix + "staff:" + id }

func (c *Cache) GetService(ctx context.Context, id string) (model.Service, error) {
	var svc model.Service
	if c.get(ctx, serviceKey(id), &svc) {
		return svc, nil
	}
	svc, err := c.next.GetService(ctx, id)
	if err != nil {
		return model.Service{}, err
	}
	c.set(ctx, serviceKey(id), svc)
	return svc, nil
}

func (c *Cache) ListServices(ctx context.Context) ([]model.Service, error) {
	var out []model.Service
	if c.get(ctx, keyServices, &out) {
		return out, nil
	}
	out, err := c.next.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, keyServices, out)
	return out, nil
}

func (c *Cache) GetStaff(ctx context.Context, id string) (model.Staff, error) {
	var st model.Staff
	if c.get(ctx, staffKey(id), &st) {
		return st, nil
	}
	st, err := c.next.GetStaff(ctx, id)
	if err != nil {
		return model.Staff{}, err
	}
	c.set(ctx, staffKey(id), st)
	return st, nil
}

func (c *Cache) ListStaff(ctx context.Context, filter model.StaffFilter) ([]model.Staff, error) {
	field := "type:" + filter.Type
	raw, err := c.rdb.HGet(ctx, keyStaffLists, field).Bytes()
	if err == nil {
		var out []model.Staff
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "catalog cache read failed", "key", keyStaffLists, "err", err)
	}

	out, err := c.next.ListStaff(ctx, filter)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(out); err == nil {
		pipe := c.rdb.TxPipeline()
		pipe.HSet(ctx, keyStaffLists, field, payload)
		pipe.Expire(ctx, keyStaffLists, c.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			c.logger.WarnContext(ctx, "catalog cache write failed", "key", keyStaffLists, "err", err)
		}
	}
	return out, nil
}

func (c *Cache) ListStaffTypes(ctx context.Context) ([]string, error) {
	var out []string
	if c.get(ctx, keyStaffTypes, &out) {
		return out, nil
	}
	out, err := c.next.ListStaffTypes(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, keyStaffTypes, out)
	return out, nil
}

// InvalidateService drops a service and the service listing.
func (c *Cache) InvalidateService(ctx context.Context, id string) error {
	keys := []string{keyServices}
	if id != "" {
		keys = append(keys, serviceKey(id))
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// InvalidateStaff drops a staff member and every staff listing.
func (c *Cache) InvalidateStaff(ctx context.Context, id string) error {
	keys := []string{keyStaffLists, keyStaffTypes}
	if id != "" {
		keys = append(keys, staffKey(id))
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *Cache) get(ctx context.Context, key string, dst any) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "catalog cache read failed", "key", key, "err", err)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.WarnContext(ctx, "catalog cache entry corrupt", "key", key, "err", err)
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "catalog cache write failed", "key", key, "err", err)
	}
}

// ReadyCheck reports whether Redis answers.
func ReadyCheck(rdb redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if rdb == nil {
			return errors.New("redis not configured")
		}
		return rdb.Ping(ctx).Err()
	}
}
