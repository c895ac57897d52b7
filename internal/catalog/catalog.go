// Package catalog stores the shop item templates and quest prompts in SQL.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/jwebster45206/infamy/pkg/character"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNoQuests is returned when a random quest is requested from an empty table.
var ErrNoQuests = errors.New("no quests available")

const itemColumns = "name, type, price, damage, defense, skill, description, level"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS shop_items (
		name        TEXT PRIMARY KEY,
		type        TEXT NOT NULL,
		price       INTEGER NOT NULL,
		damage      INTEGER NOT NULL,
		defense     INTEGER NOT NULL,
		skill       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		level       INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS quests (
		text TEXT PRIMARY KEY
	)`,
}

// Catalog is the read-mostly shop and quest store.
type Catalog struct {
	db     *sqlx.DB
	driver string
	logger *slog.Logger
}

// Open connects to the catalog database and ensures its schema.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("invalid catalog driver %q (supported: %s, %s)", driver, DriverSQLite, DriverPostgres)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		for _, pragma := range []string{`PRAGMA busy_timeout = 5000;`, `PRAGMA journal_mode = WAL;`} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("failed to configure sqlite: %w", err)
			}
		}
	} else {
		db.SetConnMaxLifetime(4 * time.Minute)
		db.SetMaxOpenConns(16)
		db.SetMaxIdleConns(4)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach catalog: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ensure catalog schema: %w", err)
		}
	}

	logger.Info("Catalog ready", "driver", driver)
	return &Catalog{db: db, driver: driver, logger: logger}, nil
}

func (c *Catalog) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// tx runs fn in a transaction, rolling back on error or panic.
func (c *Catalog) tx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Items lists every shop template, cheapest first.
func (c *Catalog) Items(ctx context.Context) ([]character.Item, error) {
	items := []character.Item{}
	q := "SELECT " + itemColumns + " FROM shop_items ORDER BY price ASC, name ASC"
	if err := c.db.SelectContext(ctx, &items, q); err != nil {
		return nil, fmt.Errorf("failed to list shop items: %w", err)
	}
	return items, nil
}

// Item finds a template by name, case-insensitively.
func (c *Catalog) Item(ctx context.Context, name string) (character.Item, error) {
	var item character.Item
	q := c.db.Rebind("SELECT " + itemColumns + " FROM shop_items WHERE LOWER(name) = LOWER(?)")
	err := c.db.GetContext(ctx, &item, q, strings.TrimSpace(name))
	if errors.Is(err, sql.ErrNoRows) {
		return character.Item{}, character.ErrItemNotFound
	}
	if err != nil {
		return character.Item{}, fmt.Errorf("failed to look up shop item: %w", err)
	}
	return item, nil
}

// AddItem inserts a validated template. Names are unique ignoring case.
func (c *Catalog) AddItem(ctx context.Context, item character.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	return c.tx(ctx, func(tx *sqlx.Tx) error {
		var n int
		if err := tx.GetContext(ctx, &n, tx.Rebind("SELECT COUNT(*) FROM shop_items WHERE LOWER(name) = LOWER(?)"), item.Name); err != nil {
			return fmt.Errorf("failed to check shop item: %w", err)
		}
		if n > 0 {
			return character.ErrDuplicateItem
		}
		q := "INSERT INTO shop_items (" + itemColumns + ") VALUES (:name, :type, :price, :damage, :defense, :skill, :description, :level)"
		if _, err := tx.NamedExecContext(ctx, q, item); err != nil {
			return fmt.Errorf("failed to add shop item: %w", err)
		}
		return nil
	})
}

// Affordable lists templates priced within budget, most expensive first.
func (c *Catalog) Affordable(ctx context.Context, budget, limit int) ([]character.Item, error) {
	if limit <= 0 {
		limit = 5
	}
	items := []character.Item{}
	q := c.db.Rebind("SELECT " + itemColumns + " FROM shop_items WHERE price <= ? ORDER BY price DESC, name ASC LIMIT ?")
	if err := c.db.SelectContext(ctx, &items, q, budget, limit); err != nil {
		return nil, fmt.Errorf("failed to list affordable items: %w", err)
	}
	return items, nil
}

// StarterItem picks a random template needing at most maxLevel in one of
// skills, skipping names in exclude. ok is false when nothing qualifies.
func (c *Catalog) StarterItem(ctx context.Context, skills []character.Skill, maxLevel int, exclude []string) (item character.Item, ok bool, err error) {
	if len(skills) == 0 {
		return character.Item{}, false, nil
	}
	query := "SELECT " + itemColumns + " FROM shop_items WHERE skill IN (?) AND level <= ?"
	names := make([]string, len(skills))
	for i, sk := range skills {
		names[i] = string(sk)
	}
	args := []any{names, maxLevel}
	if len(exclude) > 0 {
		query += " AND name NOT IN (?)"
		args = append(args, exclude)
	}
	query += " ORDER BY RANDOM() LIMIT 1"

	query, args, err = sqlx.In(query, args...)
	if err != nil {
		return character.Item{}, false, fmt.Errorf("failed to build starter query: %w", err)
	}
	err = c.db.GetContext(ctx, &item, c.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return character.Item{}, false, nil
	}
	if err != nil {
		return character.Item{}, false, fmt.Errorf("failed to pick starter item: %w", err)
	}
	return item, true, nil
}

// AddQuest stores a quest prompt. Adding the same text twice is a no-op.
func (c *Catalog) AddQuest(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("quest text cannot be empty")
	}
	q := c.db.Rebind("INSERT INTO quests (text) VALUES (?) ON CONFLICT (text) DO NOTHING")
	if _, err := c.db.ExecContext(ctx, q, text); err != nil {
		return fmt.Errorf("failed to add quest: %w", err)
	}
	return nil
}

// RandomQuest returns one quest prompt.
func (c *Catalog) RandomQuest(ctx context.Context) (string, error) {
	var text string
	err := c.db.GetContext(ctx, &text, "SELECT text FROM quests ORDER BY RANDOM() LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoQuests
	}
	if err != nil {
		return "", fmt.Errorf("failed to pick quest: %w", err)
	}
	return text, nil
}
