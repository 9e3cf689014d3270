package database

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

type jobExecutionRepository struct {
	db *DB
}

func NewJobExecutionRepository(db *DB) JobExecutionRepository {
	return &jobExecutionRepository{db: db}
}

func (r *jobExecutionRepository) Insert(job *JobExecution) error {
	_, err := r.db.Exec(`
		INSERT INTO job_executions (
			id, source, source_type, overall_status,
			records_input, records_output, records_skipped, records_failed,
			duration_seconds, errors, warnings, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, job.ID, job.Source, job.SourceType, job.OverallStatus,
		job.RecordsInput, job.RecordsOutput, job.RecordsSkipped, job.RecordsFailed,
		job.DurationSeconds, pq.Array(job.Errors), pq.Array(job.Warnings),
		job.StartedAt, job.FinishedAt)

	if err != nil {
		return fmt.Errorf("failed to insert job execution: %w", err)
	}

	return nil
}

const jobColumns = `
	id, source, source_type, overall_status,
	records_input, records_output, records_skipped, records_failed,
	duration_seconds, errors, warnings, started_at, finished_at`

func (r *jobExecutionRepository) GetByID(id string) (*JobExecution, error) {
	row := r.db.QueryRow(`
		SELECT `+jobColumns+`
		FROM job_executions
		WHERE id = $1
	`, id)

	job, err := scanJobExecution(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job execution: %w", err)
	}
	return job, nil
}

func (r *jobExecutionRepository) List(limit int) ([]JobExecution, error) {
	rows, err := r.db.Query(`
		SELECT `+jobColumns+`
		FROM job_executions
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list job executions: %w", err)
	}
	defer rows.Close()

	var jobs []JobExecution
	for rows.Next() {
		job, err := scanJobExecution(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job execution row: %w", err)
		}
		jobs = append(jobs, *job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job execution rows: %w", err)
	}

	return jobs, nil
}

func (r *jobExecutionRepository) GetLastRun(source string) (*JobExecution, error) {
	row := r.db.QueryRow(`
		SELECT `+jobColumns+`
		FROM job_executions
		WHERE source = $1
		ORDER BY started_at DESC
		LIMIT 1
	`, source)

	job, err := scanJobExecution(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last run: %w", err)
	}
	return job, nil
}

func scanJobExecution(scan func(dest ...interface{}) error) (*JobExecution, error) {
	var job JobExecution
	err := scan(&job.ID, &job.Source, &job.SourceType, &job.OverallStatus,
		&job.RecordsInput, &job.RecordsOutput, &job.RecordsSkipped, &job.RecordsFailed,
		&job.DurationSeconds, pq.Array(&job.Errors), pq.Array(&job.Warnings),
		&job.StartedAt, &job.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
