package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/bookstore/backoffice/internal/core/domain"
	"github.com/bookstore/backoffice/internal/core/ports"
)

// DefaultQueueKey is the Redis list used as the outbound mail queue.
const DefaultQueueKey = "backoffice:mail:queue"

// DefaultMaxQueueSize caps the queue when the relay is down. 0 means unlimited.
const DefaultMaxQueueSize int64 = 1000

const defaultPopTimeout = 2 * time.Second

// ErrQueueFull is returned when the queue has reached its size cap.
var ErrQueueFull = errors.New("mail queue full")

type resetJob struct {
	ToEmail string      `json:"to_email"`
	Code    string      `json:"code"`
	Role    domain.Role `json:"role"`
}

// enqueueScript pushes the job only while the queue is under the cap.
// KEYS[1] = queue key, ARGV[1] = max size (0 = no cap), ARGV[2] = payload.
var enqueueScript = redis.NewScript(`
local max = tonumber(ARGV[1])
if max > 0 and redis.call('LLEN', KEYS[1]) >= max then
  return 0
end
redis.call('RPUSH', KEYS[1], ARGV[2])
return 1
`)

// QueuedMailer enqueues reset codes on a Redis list and returns at once. Run
// drains the list and hands each job to the inner mailer.
type QueuedMailer struct {
	inner      ports.Mailer
	rdb        redis.UniversalClient
	key        string
	maxSize    int64
	popTimeout time.Duration
	log        zerolog.Logger
}

func NewQueuedMailer(inner ports.Mailer, rdb redis.UniversalClient, key string, maxSize int64, log zerolog.Logger) *QueuedMailer {
	if key == "" {
		key = DefaultQueueKey
	}
	return &QueuedMailer{
		inner:      inner,
		rdb:        rdb,
		key:        key,
		maxSize:    maxSize,
		popTimeout: defaultPopTimeout,
		log:        log,
	}
}

func (q *QueuedMailer) SendResetCode(ctx context.Context, toEmail, code string, role domain.Role) error {
	data, err := json.Marshal(resetJob{ToEmail: toEmail, Code: code, Role: role})
	if err != nil {
		return fmt.Errorf("marshal mail job: %w", err)
	}
	ok, err := enqueueScript.Run(ctx, q.rdb, []string{q.key}, q.maxSize, data).Int64()
	if err != nil {
		return fmt.Errorf("enqueue mail job: %w", err)
	}
	if ok == 0 {
		return ErrQueueFull
	}
	return nil
}

// Run blocks until ctx is cancelled. Send failures are logged and dropped.
func (q *QueuedMailer) Run(ctx context.Context) {
	for {
		res, err := q.rdb.BLPop(ctx, q.popTimeout, q.key).Result()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			q.log.Error().Err(err).Msg("mail worker: queue pop failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		// res[0] is the key, res[1] the payload
		var job resetJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			q.log.Error().Err(err).Msg("mail worker: bad job payload")
			continue
		}
		q.dispatch(ctx, job)
	}
}

func (q *QueuedMailer) dispatch(ctx context.Context, job resetJob) {
	if err := q.inner.SendResetCode(ctx, job.ToEmail, job.Code, job.Role); err != nil {
		q.log.Error().Err(err).Str("to", job.ToEmail).Str("role", string(job.Role)).Msg("mail worker: send failed")
	}
}
