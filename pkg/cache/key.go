package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key in Redis.
const KeyPrefix = "xmsync"

// CacheKey represents a unique identifier for a cached response.
type CacheKey struct {
	// Path is the API path (e.g., "/api/xm/1/people/{id}")
	Path string

	// Query are the query parameters (e.g., {"embed": "devices"})
	Query url.Values

	// Principal is the API user the response was fetched as, so that
	// accounts with different permissions never share entries
	Principal string
}

// String generates a deterministic cache key string.
// Format: xmsync:path:query1=val1,val2:query2=val:user=name
//
// Example:
//
//	xmsync:api/xm/1/people/abc:embed=devices:user=api-user
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	path := strings.Trim(k.Path, "/")
	if path != "" {
		parts = append(parts, path)
	}

	// Query params sorted for determinism
	if len(k.Query) > 0 {
		keys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.Query[key], ",")))
		}
	}

	if k.Principal != "" {
		parts = append(parts, "user="+k.Principal)
	}

	return strings.Join(parts, ":")
}
