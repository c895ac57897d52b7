package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/infamy/pkg/storage"
)

func (r *RedisStorage) RecordWin(ctx context.Context, id string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, duelStatsPrefix+id, "wins", 1)
		pipe.ZIncrBy(ctx, winsBoardKey, 1, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record win: %w", err)
	}
	return nil
}

func (r *RedisStorage) RecordLoss(ctx context.Context, id string) error {
	if err := r.client.HIncrBy(ctx, duelStatsPrefix+id, "losses", 1).Err(); err != nil {
		return fmt.Errorf("failed to record loss: %w", err)
	}
	return nil
}

func (r *RedisStorage) DuelRecord(ctx context.Context, id string) (storage.DuelRecord, error) {
	var rec storage.DuelRecord
	if err := r.client.HGetAll(ctx, duelStatsPrefix+id).Scan(&rec); err != nil {
		return storage.DuelRecord{}, fmt.Errorf("failed to load duel record: %w", err)
	}
	return rec, nil
}

func (r *RedisStorage) TopWinners(ctx context.Context, limit int) ([]storage.Standing, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.client.ZRevRangeWithScores(ctx, winsBoardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read wins leaderboard: %w", err)
	}
	out := make([]storage.Standing, 0, len(rows))
	for _, z := range rows {
		id, _ := z.Member.(string)
		out = append(out, storage.Standing{ParticipantID: id, Score: int(z.Score)})
	}
	return out, nil
}
