package port

import "context"

type KVStore interface {
	// Get returns the stored value and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)

	// Set overwrites the value stored under key
	Set(ctx context.Context, key, value string) error

	// Remove deletes key, missing keys are not an error
	Remove(ctx context.Context, key string) error
}
