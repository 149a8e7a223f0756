// Package kv implements the durable key-value store backing all client
// caches. Keys are opaque strings; values are opaque bytes. The store
// survives process restarts.
//
// Key ownership is strict: the session store owns "session.*", the avatar
// service owns "avatar.cache.*", the requests service owns
// "requests.cache.*". No two components write the same key.
package kv

import "context"

// Repository is the persistence adapter contract.
type Repository interface {
	// Get returns the value for key, or (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every key with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}
