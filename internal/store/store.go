// internal/store/store.go
//
// Package store persists validation outcomes to PostgreSQL: health check
// runs, deployment gate decisions, and handled error reports. Persistence is
// optional; the engine runs fully without a database attached.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xkilldash9x/tourguard-cli/api/schemas"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DBPool abstracts pgxpool.Pool so tests can substitute a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Store is the PostgreSQL-backed outcome repository.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// SaveHealthResults inserts a batch of health check results in one
// transaction: one row per result plus a bulk copy of the findings.
func (s *Store) SaveHealthResults(ctx context.Context, runID string, results []*schemas.HealthCheckResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	batch := &pgx.Batch{}
	sqlResult := `
        INSERT INTO health_results (id, run_id, tour_id, healthy, score, checked_at, performance)
        VALUES ($1, $2, $3, $4, $5, $6, $7);
    `
	resultIDs := make([]string, len(results))
	for i, hr := range results {
		perf, err := json.Marshal(hr.Performance)
		if err != nil {
			return fmt.Errorf("failed to encode performance for tour %s: %w", hr.TourID, err)
		}
		resultIDs[i] = uuid.New().String()
		batch.Queue(sqlResult, resultIDs[i], runID, hr.TourID, hr.IsHealthy, hr.Score,
			hr.LastChecked.UTC(), perf)
	}

	br := tx.SendBatch(ctx, batch)
	if br == nil {
		return fmt.Errorf("failed to send batch: batch results is nil")
	}
	for i := range results {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("failed to insert health result for tour %s: %w", results[i].TourID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := s.copyFindings(ctx, tx, resultIDs, results); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// copyFindings bulk-inserts every issue and warning across the batch.
func (s *Store) copyFindings(ctx context.Context, tx pgx.Tx, resultIDs []string, results []*schemas.HealthCheckResult) error {
	var rows [][]interface{}
	for i, hr := range results {
		for _, issue := range hr.Issues {
			rows = append(rows, []interface{}{
				uuid.New().String(), resultIDs[i], "issue",
				string(issue.Severity), string(issue.Category),
				issue.Message, issue.StepIndex, issue.Selector,
			})
		}
		for _, warn := range hr.Warnings {
			rows = append(rows, []interface{}{
				uuid.New().String(), resultIDs[i], "warning",
				string(warn.Impact), string(warn.Category),
				warn.Message, warn.StepIndex, "",
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}

	copyCount, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"health_findings"},
		[]string{"id", "result_id", "kind", "level", "category", "message", "step_index", "selector"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy findings: %w", err)
	}
	if int(copyCount) != len(rows) {
		return fmt.Errorf("mismatch in copied findings count: expected %d, got %d", len(rows), copyCount)
	}
	return nil
}

// SaveDeploymentResult records one gate decision.
func (s *Store) SaveDeploymentResult(ctx context.Context, runID string, result *schemas.DeploymentValidationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode deployment result: %w", err)
	}

	sql := `
        INSERT INTO deployment_runs (id, run_id, can_deploy, environment, strict_mode, total_tours, healthy_tours, average_score, detail, validated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
    `
	_, err = s.pool.Exec(ctx, sql,
		uuid.New().String(), runID, result.CanDeploy,
		result.Summary.Environment, result.Summary.StrictMode,
		result.Summary.TotalTours, result.Summary.HealthyTours,
		result.Summary.AverageScore, payload, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert deployment run: %w", err)
	}
	return nil
}

// SaveErrorReports appends handled runtime errors.
func (s *Store) SaveErrorReports(ctx context.Context, runID string, reports []schemas.ErrorReport) error {
	if len(reports) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(reports))
	for i, r := range reports {
		rows[i] = []interface{}{
			uuid.New().String(), runID, string(r.Kind), r.TourID,
			r.StepIndex, r.Message, r.Recoverable, r.Recovered,
			r.Timestamp.UTC(),
		}
	}

	copyCount, err := s.pool.CopyFrom(
		ctx,
		pgx.Identifier{"error_reports"},
		[]string{"id", "run_id", "kind", "tour_id", "step_index", "message", "recoverable", "recovered", "observed_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy error reports: %w", err)
	}
	if int(copyCount) != len(reports) {
		return fmt.Errorf("mismatch in copied report count: expected %d, got %d", len(reports), copyCount)
	}
	return nil
}

// GetHealthHistory returns prior results for one tour, newest first.
func (s *Store) GetHealthHistory(ctx context.Context, tourID string, limit int) ([]*schemas.HealthCheckResult, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
        SELECT tour_id, healthy, score, checked_at, performance
        FROM health_results
        WHERE tour_id = $1
        ORDER BY checked_at DESC
        LIMIT $2;
    `
	rows, err := s.pool.Query(ctx, query, tourID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query health history: %w", err)
	}
	defer rows.Close()

	var out []*schemas.HealthCheckResult
	for rows.Next() {
		var hr schemas.HealthCheckResult
		var perf []byte
		if err := rows.Scan(&hr.TourID, &hr.IsHealthy, &hr.Score, &hr.LastChecked, &perf); err != nil {
			return nil, fmt.Errorf("failed to scan health row: %w", err)
		}
		if len(perf) > 0 {
			if err := json.Unmarshal(perf, &hr.Performance); err != nil {
				return nil, fmt.Errorf("failed to decode performance for tour %s: %w", hr.TourID, err)
			}
		}
		out = append(out, &hr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return out, nil
}
