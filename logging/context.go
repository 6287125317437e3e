package logging

import (
	"context"

	"github.com/samber/lo"
)

type debugTagKey struct{}

// EnableDebugMode tags ctx so that the C* logging methods write debug output for any work done
// under it, whatever the logger's level. An empty tag is replaced by a random one.
func EnableDebugMode(ctx context.Context, tag string) context.Context {
	if tag == "" {
		tag = lo.RandomString(6, lo.LettersCharset)
	}
	return context.WithValue(ctx, debugTagKey{}, tag)
}

// IsDebugMode reports whether ctx was tagged with EnableDebugMode.
func IsDebugMode(ctx context.Context) bool {
	return GetName(ctx) != ""
}

// GetName returns the tag attached by EnableDebugMode, or "".
func GetName(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	tag, _ := ctx.Value(debugTagKey{}).(string)
	return tag
}
