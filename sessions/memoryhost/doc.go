// Package memoryhost provides an in-memory sessions.SessionHost implementation
// suitable for tests, development, and single-process servers. All state is
// ephemeral and discarded on process exit.
//
// Characteristics
//
//	Durability        : none (RAM only)
//	Horizontal scale  : no (process local)
//	Expiry            : sliding TTL, checked lazily on access and by Sweep
//	Concurrency       : safe (RWMutex)
//
// Example:
//
//	host := memoryhost.New()
//	// wire into httprpc.New(...)
//
// For deployments with more than one replica prefer redishost.
package memoryhost
