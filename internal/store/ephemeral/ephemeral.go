package ephemeral

import "context"

// Subscription is one live pub/sub subscription. Messages stops yielding
// after Close; a message published while nobody listens is lost, which is
// exactly the rendezvous semantics the pairing channel wants.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// Store is the ephemeral keyed store contract: per-key set/hash reads and
// writes, pattern-based cursor scanning and fire-and-forget pub/sub. No
// cross-key transactions are assumed anywhere.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)

	SAdd(ctx context.Context, key string, members ...string) error
	SCard(ctx context.Context, key string) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)

	HSet(ctx context.Context, key string, fields map[string]string) error
	// HMGet returns one value per requested field, "" when absent.
	HMGet(ctx context.Context, key string, fields ...string) ([]string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// Scan walks keys matching the glob pattern in bounded batches.
	// A returned cursor of 0 means the iteration is complete.
	Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error)

	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)

	Close() error
}
