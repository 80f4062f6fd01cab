// Package identity provides the principal lookup collaborators consumed by
// the authentication stage: an in-memory table, a PostgreSQL table, a TTL
// cache and a circuit breaker that compose around any Lookup.
package identity
