package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PostgresFacts serves persona facts from a PostgreSQL table.
type PostgresFacts struct {
	pool *pgxpool.Pool
}

func NewPostgresFacts(ctx context.Context, databaseURL string) (*PostgresFacts, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresFacts{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS persona_facts (
			id TEXT PRIMARY KEY,
			persona_id TEXT NOT NULL,
			fact TEXT NOT NULL,
			position INT NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_persona_facts_persona ON persona_facts (persona_id, position);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresFacts) Facts(ctx context.Context, personaID string) []string {
	rows, err := s.pool.Query(ctx,
		`SELECT fact FROM persona_facts WHERE persona_id=$1 ORDER BY position, id`,
		personaID,
	)
	if err != nil {
		log.Warn().Err(err).Str("persona", personaID).Msg("facts query failed")
		return nil
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var fact string
		if err := rows.Scan(&fact); err != nil {
			log.Warn().Err(err).Str("persona", personaID).Msg("facts scan failed")
			return nil
		}
		out = append(out, fact)
	}
	if err := rows.Err(); err != nil {
		log.Warn().Err(err).Str("persona", personaID).Msg("facts iteration failed")
		return nil
	}
	return out
}

func (s *PostgresFacts) Close() error {
	s.pool.Close()
	return nil
}
