package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type disclosureRepository struct {
	db *DB
}

func NewDisclosureRepository(db *DB) DisclosureRepository {
	return &disclosureRepository{db: db}
}

const disclosureColumns = `
	id, politician_id, transaction_date, disclosure_date, asset_name,
	asset_ticker, transaction_type, amount_range_min, amount_range_max,
	source, raw_data, status, created_at, updated_at`

func (r *disclosureRepository) GetByDedupKey(politicianID string, transactionDate time.Time,
	assetName, transactionType string, disclosureDate time.Time) (*TradingDisclosure, error) {

	row := r.db.QueryRow(`
		SELECT `+disclosureColumns+`
		FROM trading_disclosures
		WHERE politician_id = $1
		  AND transaction_date = $2
		  AND asset_name = $3
		  AND transaction_type = $4
		  AND disclosure_date = $5
	`, politicianID, transactionDate, assetName, transactionType, disclosureDate)

	d, err := scanDisclosure(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get disclosure by dedup key: %w", err)
	}
	return d, nil
}

func (r *disclosureRepository) Insert(d *TradingDisclosure) (string, error) {
	rawData, err := json.Marshal(d.RawData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal raw data: %w", err)
	}

	var id string
	err = r.db.QueryRow(`
		INSERT INTO trading_disclosures (
			politician_id, transaction_date, disclosure_date, asset_name,
			asset_ticker, transaction_type, amount_range_min, amount_range_max,
			source, raw_data, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT ON CONSTRAINT trading_disclosures_dedup_key DO NOTHING
		RETURNING id
	`, d.PoliticianID, d.TransactionDate, d.DisclosureDate, d.AssetName,
		d.AssetTicker, d.TransactionType, d.AmountRangeMin, d.AmountRangeMax,
		d.Source, rawData, d.Status).Scan(&id)

	if err == sql.ErrNoRows {
		// Lost the race to a concurrent insert of the same record; the
		// unique constraint is the dedup arbiter.
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to insert disclosure: %w", err)
	}

	return id, nil
}

// UpdateMutable updates only the fields a re-run may revise. The dedup key
// and created_at never change.
func (r *disclosureRepository) UpdateMutable(id string, ticker *string, amountMin, amountMax *int64, rawData map[string]interface{}) error {
	rawJSON, err := json.Marshal(rawData)
	if err != nil {
		return fmt.Errorf("failed to marshal raw data: %w", err)
	}

	_, err = r.db.Exec(`
		UPDATE trading_disclosures
		SET asset_ticker = $2, amount_range_min = $3, amount_range_max = $4,
		    raw_data = $5, updated_at = NOW()
		WHERE id = $1
	`, id, ticker, amountMin, amountMax, rawJSON)

	if err != nil {
		return fmt.Errorf("failed to update disclosure: %w", err)
	}

	return nil
}

func (r *disclosureRepository) UpdateStatus(id string, status string) error {
	_, err := r.db.Exec(`
		UPDATE trading_disclosures
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`, id, status)

	if err != nil {
		return fmt.Errorf("failed to update disclosure status: %w", err)
	}

	return nil
}

func (r *disclosureRepository) ListByStatus(source, status string, limit int) ([]TradingDisclosure, error) {
	rows, err := r.db.Query(`
		SELECT `+disclosureColumns+`
		FROM trading_disclosures
		WHERE source = $1 AND status = $2
		ORDER BY created_at
		LIMIT $3
	`, source, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list disclosures by status: %w", err)
	}
	defer rows.Close()

	var disclosures []TradingDisclosure
	for rows.Next() {
		d, err := scanDisclosure(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan disclosure row: %w", err)
		}
		disclosures = append(disclosures, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating disclosure rows: %w", err)
	}

	return disclosures, nil
}

func (r *disclosureRepository) GetCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM trading_disclosures").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get disclosure count: %w", err)
	}
	return count, nil
}

func (r *disclosureRepository) GetCountBySource() (map[string]int, error) {
	rows, err := r.db.Query(`
		SELECT source, COUNT(*)
		FROM trading_disclosures
		GROUP BY source
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get disclosure counts by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[source] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating count rows: %w", err)
	}

	return counts, nil
}

func scanDisclosure(scan func(dest ...interface{}) error) (*TradingDisclosure, error) {
	var d TradingDisclosure
	var rawJSON []byte

	err := scan(&d.ID, &d.PoliticianID, &d.TransactionDate, &d.DisclosureDate,
		&d.AssetName, &d.AssetTicker, &d.TransactionType,
		&d.AmountRangeMin, &d.AmountRangeMax, &d.Source, &rawJSON,
		&d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(rawJSON) > 0 {
		if err := json.Unmarshal(rawJSON, &d.RawData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal raw data: %w", err)
		}
	}

	return &d, nil
}
