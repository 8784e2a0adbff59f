package order

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/unicafe/cafeteria/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sequencer hands out the per-day order counter. tx is the transaction the
// order is being created in; implementations outside the database may ignore it.
type Sequencer interface {
	Next(ctx context.Context, tx *gorm.DB, day string) (int64, error)
}

// FormatNumber renders PREFIX-YYYYMMDD-NNNNN.
func FormatNumber(prefix, day string, seq int64) string {
	return fmt.Sprintf("%s-%s-%05d", prefix, day, seq)
}

// DBSequencer keeps one counter row per day in order_sequence. The row is
// incremented inside the order transaction, so the row lock serialises
// same-day orders and a rolled back order releases its number.
type DBSequencer struct{}

func (DBSequencer) Next(ctx context.Context, tx *gorm.DB, day string) (int64, error) {
	tx = tx.WithContext(ctx)
	for attempt := 0; attempt < 2; attempt++ {
		res := tx.Model(&domain.OrderSequence{}).
			Where("day = ?", day).
			Updates(map[string]interface{}{
				"counter":    gorm.Expr("counter + 1"),
				"updated_at": tx.NowFunc(),
			})
		if res.Error != nil {
			return 0, errors.Wrapf(res.Error, "increment order sequence %s", day)
		}
		if res.RowsAffected == 1 {
			var seq domain.OrderSequence
			if err := tx.Take(&seq, "day = ?", day).Error; err != nil {
				return 0, errors.Wrapf(err, "read order sequence %s", day)
			}
			return seq.Counter, nil
		}
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&domain.OrderSequence{Day: day}).Error
		if err != nil {
			return 0, errors.Wrapf(err, "open order sequence %s", day)
		}
	}
	return 0, &domain.ConcurrencyConflictError{Entity: "order sequence"}
}

// RedisSequencer counts with INCR on a per-day key. Numbers of rolled back
// orders are not reused, so the sequence may have gaps.
type RedisSequencer struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisSequencer(client redis.UniversalClient) *RedisSequencer {
	return &RedisSequencer{client: client, prefix: "orderseq:", ttl: 48 * time.Hour}
}

func (s *RedisSequencer) Next(ctx context.Context, _ *gorm.DB, day string) (int64, error) {
	key := s.prefix + day
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, errors.Wrapf(err, "incr %s", key)
	}
	return incr.Val(), nil
}
