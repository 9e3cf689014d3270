package database

import (
	"database/sql"
	"fmt"
)

type politicianRepository struct {
	db *DB
}

func NewPoliticianRepository(db *DB) PoliticianRepository {
	return &politicianRepository{db: db}
}

func (r *politicianRepository) GetByID(id string) (*Politician, error) {
	row := r.db.QueryRow(`
		SELECT id, first_name, last_name, full_name, role,
		       COALESCE(party, ''), COALESCE(state_or_country, ''),
		       COALESCE(bioguide_id, ''), created_at, updated_at
		FROM politicians
		WHERE id = $1
	`, id)

	return scanPolitician(row)
}

func (r *politicianRepository) GetByIdentity(firstName, lastName, role, stateOrCountry string) (*Politician, error) {
	row := r.db.QueryRow(`
		SELECT id, first_name, last_name, full_name, role,
		       COALESCE(party, ''), COALESCE(state_or_country, ''),
		       COALESCE(bioguide_id, ''), created_at, updated_at
		FROM politicians
		WHERE first_name = $1 AND last_name = $2 AND role = $3 AND state_or_country = $4
	`, firstName, lastName, role, stateOrCountry)

	return scanPolitician(row)
}

func (r *politicianRepository) ListByRole(role string) ([]Politician, error) {
	rows, err := r.db.Query(`
		SELECT id, first_name, last_name, full_name, role,
		       COALESCE(party, ''), COALESCE(state_or_country, ''),
		       COALESCE(bioguide_id, ''), created_at, updated_at
		FROM politicians
		WHERE role = $1
		ORDER BY last_name, first_name
	`, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list politicians by role: %w", err)
	}
	defer rows.Close()

	var politicians []Politician
	for rows.Next() {
		var p Politician
		err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.FullName, &p.Role,
			&p.Party, &p.StateOrCountry, &p.BioguideID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan politician row: %w", err)
		}
		politicians = append(politicians, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating politician rows: %w", err)
	}

	return politicians, nil
}

// Insert creates a politician row. The identity constraint is the arbiter
// under concurrent creation: on conflict the existing row's id is returned.
func (r *politicianRepository) Insert(p *Politician) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO politicians (first_name, last_name, full_name, role, party, state_or_country, bioguide_id)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		ON CONFLICT ON CONSTRAINT politicians_identity_key DO UPDATE SET
			updated_at = NOW()
		RETURNING id
	`, p.FirstName, p.LastName, p.FullName, p.Role, p.Party, p.StateOrCountry, p.BioguideID).Scan(&id)

	if err != nil {
		return "", fmt.Errorf("failed to insert politician: %w", err)
	}

	return id, nil
}

func (r *politicianRepository) GetCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM politicians").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get politician count: %w", err)
	}
	return count, nil
}

func scanPolitician(row *sql.Row) (*Politician, error) {
	var p Politician
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.FullName, &p.Role,
		&p.Party, &p.StateOrCountry, &p.BioguideID, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan politician: %w", err)
	}
	return &p, nil
}
