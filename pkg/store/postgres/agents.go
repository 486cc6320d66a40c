package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/tcsenpai/lattice/pkg/models"
	"github.com/tcsenpai/lattice/pkg/store"
)

func (s *Store) CreateAgent(ctx context.Context, a models.Agent) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO agents (did, username, public_key, created_at) VALUES ($1, $2, $3, $4)`,
		a.DID, a.Username, a.PublicKey, a.CreatedAt,
	)
	if err != nil {
		return mapUniqueViolation(err, "agent")
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO exp_balances (did, total, updated_at) VALUES ($1, 0, $2)`,
		a.DID, a.CreatedAt,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) GetAgent(ctx context.Context, did string) (*models.Agent, error) {
	var a models.Agent
	err := s.pool.QueryRow(ctx,
		`SELECT did, username, public_key, created_at, attested_by, attested_at FROM agents WHERE did = $1`,
		did,
	).Scan(&a.DID, &a.Username, &a.PublicKey, &a.CreatedAt, &a.AttestedBy, &a.AttestedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.NotFound("agent not found")
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM agents WHERE lower(username) = lower($1))`, username,
	).Scan(&exists)
	return exists, err
}

func (s *Store) RecordAttestation(ctx context.Context, att models.Attestation) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO attestations (id, agent_did, attestor_did, created_at) VALUES ($1, $2, $3, $4)`,
		att.ID, att.AgentDID, att.AttestorDID, att.CreatedAt,
	); err != nil {
		return mapUniqueViolation(err, "attestation")
	}

	if _, err := tx.Exec(ctx,
		`UPDATE agents SET attested_by = $1, attested_at = $2 WHERE did = $3`,
		att.AttestorDID, att.CreatedAt, att.AgentDID,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) GetAttestation(ctx context.Context, agentDID string) (*models.Attestation, error) {
	var att models.Attestation
	err := s.pool.QueryRow(ctx,
		`SELECT id, agent_did, attestor_did, created_at FROM attestations WHERE agent_did = $1`,
		agentDID,
	).Scan(&att.ID, &att.AgentDID, &att.AttestorDID, &att.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &att, nil
}

func (s *Store) CountAttestationsSince(ctx context.Context, attestorDID string, since int64) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attestations WHERE attestor_did = $1 AND created_at >= $2`,
		attestorDID, since,
	).Scan(&n)
	return n, err
}
