package redisstore

import (
	"github.com/redis/go-redis/v9"
)

const (
	orderKeyPrefix       = "checkout:order:"
	stockKeyPrefix       = "checkout:stock:"
	reservationKeyPrefix = "checkout:reservation:"
)

// New builds the shared client for the redis-backed ledger store.
func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// updateIfExists swaps a document only when it is already present,
// giving Update the same not-found semantics as the in-memory ledger.
var updateIfExists = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1])
return 1
`)

// adjustQuantity is the per-item atomic conditional read-modify-write:
// the decrement is rejected whole when the result would be negative.
// Returns -1 when the item is missing, -2 when stock is insufficient.
var adjustQuantity = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
  return -1
end
local new = tonumber(cur) + tonumber(ARGV[1])
if new < 0 then
  return -2
end
redis.call('SET', KEYS[1], new)
return new
`)
