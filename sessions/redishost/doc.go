// Package redishost implements sessions.SessionHost on Redis so that several
// gateway replicas can share HTTP sessions.
//
// Each session is a JSON blob at <prefix><session id> with a native key
// expiry. GetSession refreshes the expiry with PEXPIRE, giving the sliding TTL
// the SessionHost contract asks for. CreateSession uses SET NX so two
// replicas can never claim the same id.
//
// Example:
//
//	host, _ := redishost.New(redishost.Config{RedisAddr: "localhost:6379", KeyPrefix: "ise:sessions:"})
//	defer host.Close()
//
// Use memoryhost for a single process.
package redishost
