// Package cache keeps xMatters GET responses in Redis.
//
// xMatters sends no Expires or ETag headers, so every entry lives for the
// TTL the Manager was built with. The cache avoids repeating identical lookups
// within and across job runs, mostly person lookups by id while building
// response reports.
//
//	m := cache.NewManager(rdb, 10*time.Minute, logger)
//
//	key := cache.CacheKey{
//		Path:      "/api/xm/1/people/6a0b9c24-...",
//		Query:     url.Values{"embed": []string{"devices"}},
//		Principal: "api-user",
//	}
//
//	if e, err := m.Get(ctx, key); err == nil {
//		return e.Response(req, time.Now()), nil
//	}
//	// fetch from xMatters, then
//	_ = m.Put(ctx, key, resp)
//
// After a successful POST to a collection, Invalidate drops every entry
// below that path.
//
// Metrics:
//
//   - xmsync_cache_lookups_total{result}
//   - xmsync_cache_stored_bytes_total
//   - xmsync_cache_invalidated_total
//   - xmsync_cache_errors_total{operation}
package cache
