package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/infamy/pkg/character"
)

func characterKey(id string) string {
	return characterPrefix + id
}

// CreateCharacter stores a new sheet. Registration is the only creation path,
// so an existing key is reported as character.ErrAlreadyRegistered.
func (r *RedisStorage) CreateCharacter(ctx context.Context, sheet *character.Sheet) error {
	if sheet == nil {
		return errors.New("sheet cannot be nil")
	}
	data, err := json.Marshal(sheet)
	if err != nil {
		return fmt.Errorf("failed to marshal character: %w", err)
	}

	ok, err := r.client.SetNX(ctx, characterKey(sheet.ID), data, 0).Result()
	if err != nil {
		r.logger.Error("Failed to create character", "participant_id", sheet.ID, "error", err)
		return fmt.Errorf("failed to create character: %w", err)
	}
	if !ok {
		return character.ErrAlreadyRegistered
	}

	if err := r.client.ZAdd(ctx, levelBoardKey, redis.Z{Score: float64(sheet.Level), Member: sheet.ID}).Err(); err != nil {
		r.logger.Warn("Failed to rank new character", "participant_id", sheet.ID, "error", err)
	}
	return nil
}

func (r *RedisStorage) LoadCharacter(ctx context.Context, id string) (*character.Sheet, error) {
	data, err := r.client.Get(ctx, characterKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, character.ErrNotRegistered
	}
	if err != nil {
		r.logger.Error("Failed to load character", "participant_id", id, "error", err)
		return nil, fmt.Errorf("failed to load character: %w", err)
	}
	return decodeSheet(data)
}

// UpdateCharacter applies fn inside a WATCH transaction on the sheet key. A
// write that lands between the read and the EXEC aborts the transaction and
// is reported as character.ErrRecordConflict.
func (r *RedisStorage) UpdateCharacter(ctx context.Context, id string, fn func(*character.Sheet) error) (*character.Sheet, error) {
	key := characterKey(id)
	var updated *character.Sheet

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return character.ErrNotRegistered
		}
		if err != nil {
			return fmt.Errorf("failed to load character: %w", err)
		}
		sheet, err := decodeSheet(data)
		if err != nil {
			return err
		}
		if err := fn(sheet); err != nil {
			return err
		}
		sheet.UpdatedAt = time.Now()
		out, err := json.Marshal(sheet)
		if err != nil {
			return fmt.Errorf("failed to marshal character: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			pipe.ZAdd(ctx, levelBoardKey, redis.Z{Score: float64(sheet.Level), Member: id})
			return nil
		})
		if err != nil {
			return err
		}
		updated = sheet
		return nil
	}

	err := r.client.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		r.logger.Debug("Character update conflicted", "participant_id", id)
		return nil, fmt.Errorf("failed to update character %s: %w", id, character.ErrRecordConflict)
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// TopCharacters returns sheets ordered by level, highest first.
func (r *RedisStorage) TopCharacters(ctx context.Context, limit int) ([]*character.Sheet, error) {
	if limit <= 0 {
		limit = 10
	}
	ids, err := r.client.ZRevRange(ctx, levelBoardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read level leaderboard: %w", err)
	}
	if len(ids) == 0 {
		return []*character.Sheet{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = characterKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard characters: %w", err)
	}

	sheets := make([]*character.Sheet, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			r.logger.Warn("Leaderboard entry without character", "participant_id", ids[i])
			continue
		}
		sheet, err := decodeSheet([]byte(s))
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

func decodeSheet(data []byte) (*character.Sheet, error) {
	var sheet character.Sheet
	if err := json.Unmarshal(data, &sheet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal character: %w", err)
	}
	return &sheet, nil
}
