// Automod component for caching short strings with a fixed TTL and purging.
//
// Includes an interface and implementations using redis and in-process memory. The consumer uses it to remember which chat updates it has already handled, so redelivered updates are not processed twice.
package cachestore
