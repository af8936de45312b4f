package counterstore

import (
	"fmt"
	"time"
)

// Key builders for the well-known keyspaces. Keeping them in one place
// makes the keyspace greppable and keeps TTL policy next to the keys it
// applies to.

const (
	// QuotaCacheTTL bounds staleness of the quota display cache. The
	// cache is also invalidated eagerly on every consume and refund, so
	// the TTL is only a backstop.
	QuotaCacheTTL = 5 * time.Minute

	// ResultCacheTTL is how long a generated rewrite is served from cache
	// for identical inputs.
	ResultCacheTTL = 24 * time.Hour

	// GlobalDailyTTL expires the global admission counter at day
	// rollover. The key embeds the calendar day, so a stale counter from
	// yesterday can never be read even if the TTL outlives it.
	GlobalDailyTTL = 24 * time.Hour

	// RateWindowTTL expires a per-user rate window bucket. Slightly
	// longer than the one-minute window so a bucket never vanishes
	// mid-window.
	RateWindowTTL = 2 * time.Minute
)

// QuotaCacheKey addresses the cached {used, limit} display snapshot for a
// user.
func QuotaCacheKey(userID string) string {
	return "quota:" + userID
}

// ResultCacheKey addresses a cached rewrite result by request fingerprint.
func ResultCacheKey(fingerprint string) string {
	return "cache:rewrite:" + fingerprint
}

// GlobalDailyKey addresses the cross-tenant admission counter for the
// calendar day of now (UTC).
func GlobalDailyKey(now time.Time) string {
	return "global:daily:" + now.UTC().Format("2006-01-02")
}

// RateWindowKey addresses a user's fixed one-minute rate window bucket.
// The bucket index changes every minute, which is what makes the window
// fixed rather than sliding.
func RateWindowKey(userID string, now time.Time) string {
	return fmt.Sprintf("rate:%s:%d", userID, now.Unix()/60)
}
