// Package cache implements a fixed-capacity, in-memory key–value cache with
// least-recently-used eviction.
//
// Goals for this package:
//   - Make the core data structures explicit (map index + doubly-linked recency list)
//   - Provide O(1) Put/Get/Remove via the map index and constant-time list splicing
//   - Keep the store single-owner: no internal locking; callers that share a
//     store guard it at the boundary (Loader shows the pattern)
//   - Bound memory strictly: evicting the recency-list tail is the only
//     reclamation mechanism, and it is deterministic
//
// Example:
//
//	c, err := cache.New[int, int](2)
//	if err != nil { ... }
//	c.Put(1, 15)
//	c.Put(2, 50)
//	v, ok := c.Get(1) // => 15, true; 1 is now most recently used
//	c.Put(3, 99)      // full: evicts 2, the least recently used
//	_, ok = c.Get(2)  // => false
package cache
