package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/infamy/pkg/chat"
	"github.com/jwebster45206/infamy/pkg/storage"
)

func (r *RedisStorage) RememberParticipant(ctx context.Context, p chat.Participant) error {
	flag := "0"
	if p.Bot {
		flag = "1"
	}
	if err := r.client.HSet(ctx, participantsKey, p.ID, flag).Err(); err != nil {
		return fmt.Errorf("failed to remember participant: %w", err)
	}
	return nil
}

func (r *RedisStorage) LookupParticipant(ctx context.Context, id string) (chat.Participant, error) {
	flag, err := r.client.HGet(ctx, participantsKey, id).Result()
	if errors.Is(err, redis.Nil) {
		return chat.Participant{}, storage.ErrUnknownParticipant
	}
	if err != nil {
		return chat.Participant{}, fmt.Errorf("failed to look up participant: %w", err)
	}
	return chat.Participant{ID: id, Bot: flag == "1"}, nil
}
