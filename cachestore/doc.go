// Shared caching of upstream API results.
//
// A Store holds string values under a (name, key) pair, where name is a
// namespace such as "verdict" or "video". Every entry has the same lifetime,
// set when the Store is created. GetJSON and SetJSON wrap a Store for typed
// values.
//
// MemStore is an in-process LRU, suitable for a single daemon. RedisStore and
// MemcachedStore are shared between replicas; RedisStore keeps a small
// in-process layer in front of redis.
package cachestore
