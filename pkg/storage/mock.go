package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jwebster45206/infamy/pkg/character"
	"github.com/jwebster45206/infamy/pkg/chat"
)

// MockStorage is an in-memory implementation of Storage for testing
type MockStorage struct {
	mu           sync.RWMutex
	sheets       map[string]*character.Sheet
	cooldowns    map[string]*window
	records      map[string]*DuelRecord
	participants map[string]chat.Participant
	pingError    error
	conflicts    int
	updates      int
	now          func() time.Time
}

type window struct {
	used    int
	resetAt time.Time
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		sheets:       make(map[string]*character.Sheet),
		cooldowns:    make(map[string]*window),
		records:      make(map[string]*DuelRecord),
		participants: make(map[string]chat.Participant),
		now:          time.Now,
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// FailNextUpdates makes the next n UpdateCharacter calls report a conflict.
func (m *MockStorage) FailNextUpdates(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts = n
}

// Updates reports how many UpdateCharacter attempts were made.
func (m *MockStorage) Updates() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updates
}

// SetClock overrides the clock used for cooldown windows.
func (m *MockStorage) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) CreateCharacter(ctx context.Context, sheet *character.Sheet) error {
	if sheet == nil {
		return errors.New("sheet cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sheets[sheet.ID]; exists {
		return character.ErrAlreadyRegistered
	}
	stored, err := cloneSheet(sheet)
	if err != nil {
		return err
	}
	m.sheets[sheet.ID] = stored
	return nil
}

func (m *MockStorage) LoadCharacter(ctx context.Context, id string) (*character.Sheet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sheet, ok := m.sheets[id]
	if !ok {
		return nil, character.ErrNotRegistered
	}
	return cloneSheet(sheet)
}

func (m *MockStorage) UpdateCharacter(ctx context.Context, id string, fn func(*character.Sheet) error) (*character.Sheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	stored, ok := m.sheets[id]
	if !ok {
		return nil, character.ErrNotRegistered
	}
	if m.conflicts > 0 {
		m.conflicts--
		return nil, character.ErrRecordConflict
	}
	working, err := cloneSheet(stored)
	if err != nil {
		return nil, err
	}
	if err := fn(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = m.now()
	saved, err := cloneSheet(working)
	if err != nil {
		return nil, err
	}
	m.sheets[id] = saved
	return working, nil
}

func (m *MockStorage) TopCharacters(ctx context.Context, limit int) ([]*character.Sheet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*character.Sheet, 0, len(m.sheets))
	for _, s := range m.sheets {
		c, err := cloneSheet(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level > out[j].Level
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockStorage) TakeCooldown(ctx context.Context, key string, rate int, per time.Duration) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	w, ok := m.cooldowns[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(per)}
		m.cooldowns[key] = w
	}
	if w.used >= rate {
		return w.resetAt.Sub(now), nil
	}
	w.used++
	return 0, nil
}

func (m *MockStorage) ResetCooldown(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cooldowns, key)
	return nil
}

// CooldownUses reports how many uses of a bucket are spent in the current window.
func (m *MockStorage) CooldownUses(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if w, ok := m.cooldowns[key]; ok && m.now().Before(w.resetAt) {
		return w.used
	}
	return 0
}

func (m *MockStorage) RecordWin(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(id).Wins++
	return nil
}

func (m *MockStorage) RecordLoss(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(id).Losses++
	return nil
}

func (m *MockStorage) record(id string) *DuelRecord {
	r, ok := m.records[id]
	if !ok {
		r = &DuelRecord{}
		m.records[id] = r
	}
	return r
}

func (m *MockStorage) DuelRecord(ctx context.Context, id string) (DuelRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.records[id]; ok {
		return *r, nil
	}
	return DuelRecord{}, nil
}

func (m *MockStorage) TopWinners(ctx context.Context, limit int) ([]Standing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Standing, 0, len(m.records))
	for id, r := range m.records {
		if r.Wins > 0 {
			out = append(out, Standing{ParticipantID: id, Score: r.Wins})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ParticipantID < out[j].ParticipantID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockStorage) RememberParticipant(ctx context.Context, p chat.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.participants[p.ID] = p
	return nil
}

func (m *MockStorage) LookupParticipant(ctx context.Context, id string) (chat.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.participants[id]
	if !ok {
		return chat.Participant{}, ErrUnknownParticipant
	}
	return p, nil
}

func cloneSheet(s *character.Sheet) (*character.Sheet, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to copy sheet: %w", err)
	}
	var out character.Sheet
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to copy sheet: %w", err)
	}
	return &out, nil
}
