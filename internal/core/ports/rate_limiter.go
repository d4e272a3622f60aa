package ports

import "context"

// RateLimiter admits or denies login attempts keyed by source IP.
type RateLimiter interface {
	Admit(ctx context.Context, sourceIP string) (bool, error)
}
