package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeDelete deletes cache keys and logs instead of failing
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// CompletionKey is the cache key of one user's completion record for a course
func CompletionKey(userID string, courseID int) string {
	return fmt.Sprintf("user:%s:course:%d", userID, courseID)
}
