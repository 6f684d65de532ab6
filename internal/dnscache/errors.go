// Package dnscache implements the bounded, TTL-aware LRU cache of DNS
// responses described by the flow inspection engine: a response is stored
// once per question key and replayed for later queries with only the
// transaction id rewritten.
package dnscache

import "errors"

// errCacheMiss is not referenced by any code in this package and is never
// returned; lookups report a miss as a false result.
var errCacheMiss = errors.New("dnscache: miss")
