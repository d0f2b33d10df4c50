package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateAttendanceStats drops cached attendance aggregates for a date
func InvalidateAttendanceStats(ctx context.Context, cm *CacheManager, fecha string) {
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("attendance:%s:*", fecha))
}

// SummaryKey is the Stats key of the admin summary of a date
func SummaryKey(fecha string) string {
	return fmt.Sprintf("summary:%s", fecha)
}

// InvalidateActivationStats drops the cached admin summary of a date
func InvalidateActivationStats(ctx context.Context, cm *CacheManager, fecha string) {
	SafeDelete(ctx, cm.Stats, SummaryKey(fecha))
}
