package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/accidentlink/portal/internal/model"
	"github.com/redis/go-redis/v9"
)

// Report lists are invalidated on every mutation anyway; the TTL only
// bounds staleness if an invalidation is lost.
const reportListTTL = 60 * time.Second

// ReportCache holds the role-scoped report-list projections. A nil
// *ReportCache is valid and caches nothing, so the portal runs
// fail-open when redis is absent.
type ReportCache struct {
	client *redis.Client
}

func NewReportCache(redisURL string) (*ReportCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Printf("Connected to Redis at %s", redisURL)
	return &ReportCache{client: client}, nil
}

// GetReports returns the cached list for a role, with a hit flag.
func (c *ReportCache) GetReports(ctx context.Context, role model.Role) ([]model.Report, bool) {
	if c == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, listKey(role)).Bytes()
	if err != nil {
		return nil, false
	}

	var reports []model.Report
	if err := json.Unmarshal(raw, &reports); err != nil {
		return nil, false
	}
	return reports, true
}

// SetReports stores the list for a role.
func (c *ReportCache) SetReports(ctx context.Context, role model.Role, reports []model.Report) {
	if c == nil {
		return
	}

	raw, err := json.Marshal(reports)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, listKey(role), raw, reportListTTL).Err(); err != nil {
		log.Printf("Warning: failed to cache report list: %v", err)
	}
}

// InvalidateReports drops every role's cached list. Called after any
// mutation (report submission, statement creation, analysis
// submission) so the next read is consistent; the projection is never
// patched incrementally.
func (c *ReportCache) InvalidateReports(ctx context.Context) {
	if c == nil {
		return
	}

	keys := []string{
		listKey(model.RoleCitizen),
		listKey(model.RoleOfficer),
		listKey(model.RoleInsurance),
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("Warning: failed to invalidate report lists: %v", err)
	}
}

func (c *ReportCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func listKey(role model.Role) string {
	return "reports:" + string(role)
}
