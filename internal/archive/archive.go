package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/luca-ts/impostor-backend/internal/game"
)

// Store persists finished games to Postgres. It is optional: when no
// database is configured the engine simply runs without a RecordFunc.
type Store struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS game_results (
	id          BIGSERIAL PRIMARY KEY,
	lobby_id    TEXT        NOT NULL,
	secret_word TEXT        NOT NULL,
	hint        TEXT        NOT NULL,
	winner      TEXT        NOT NULL,
	end_reason  TEXT        NOT NULL,
	roles       JSONB       NOT NULL,
	votes       JSONB,
	ended_at    TIMESTAMPTZ NOT NULL
)`

// Open connects to the database and ensures the results table exists.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create game_results table: %w", err)
	}
	log.Printf("[archive.Open] results archive connected")
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// RecordGame inserts one finished game. Satisfies game.RecordFunc.
func (s *Store) RecordGame(ctx context.Context, rec game.GameRecord) error {
	roles, err := json.Marshal(rec.Roles)
	if err != nil {
		return fmt.Errorf("marshal roles: %w", err)
	}
	var votes []byte
	if rec.Votes != nil {
		votes, err = json.Marshal(rec.Votes)
		if err != nil {
			return fmt.Errorf("marshal votes: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO game_results (lobby_id, secret_word, hint, winner, end_reason, roles, votes, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.LobbyId, rec.SecretWord, rec.Hint, string(rec.Winner), string(rec.Reason), roles, votes, rec.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	return nil
}
