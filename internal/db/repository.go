package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mauv0809/portfolio-backtest/internal/models"
)

// Repository handles database operations for saved scenarios.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateScenario stores a scenario, assigning it an id.
func (r *Repository) CreateScenario(ctx context.Context, s *models.Scenario) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	allocations, err := json.Marshal(s.Allocations)
	if err != nil {
		return fmt.Errorf("encoding allocations: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO scenarios (
			id, name, start_date, end_date,
			initial_amount, monthly_salary, monthly_living_cost,
			monthly_contribution, minimum_cash_reserve,
			dividend_policy, allocations, benchmark_ticker, risk_free_rate
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9,
			$10, $11, $12, $13
		)
		RETURNING created_at
	`,
		s.ID, s.Name, s.StartDate, s.EndDate,
		s.InitialAmount, s.MonthlySalary, s.MonthlyLivingCost,
		s.MonthlyContribution, s.MinimumCashReserve,
		string(s.DividendPolicy), allocations, s.BenchmarkTicker, s.RiskFreeRate,
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting scenario: %w", err)
	}

	return nil
}

// GetScenario fetches one scenario by id. A missing id surfaces as
// pgx.ErrNoRows through the wrapped error.
func (r *Repository) GetScenario(ctx context.Context, id uuid.UUID) (*models.Scenario, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, start_date, end_date,
		       initial_amount, monthly_salary, monthly_living_cost,
		       monthly_contribution, minimum_cash_reserve,
		       dividend_policy, allocations, benchmark_ticker, risk_free_rate,
		       created_at
		FROM scenarios
		WHERE id = $1
	`, id)

	s, err := scanScenario(row)
	if err != nil {
		return nil, fmt.Errorf("querying scenario: %w", err)
	}
	return s, nil
}

// ListScenarios returns all saved scenarios, newest first.
func (r *Repository) ListScenarios(ctx context.Context) ([]models.Scenario, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, start_date, end_date,
		       initial_amount, monthly_salary, monthly_living_cost,
		       monthly_contribution, minimum_cash_reserve,
		       dividend_policy, allocations, benchmark_ticker, risk_free_rate,
		       created_at
		FROM scenarios
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying scenarios: %w", err)
	}
	defer rows.Close()

	var scenarios []models.Scenario
	for rows.Next() {
		s, err := scanScenario(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning scenario: %w", err)
		}
		scenarios = append(scenarios, *s)
	}

	return scenarios, rows.Err()
}

// DeleteScenario removes a scenario and reports whether it existed.
func (r *Repository) DeleteScenario(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM scenarios WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("deleting scenario: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// rowScanner covers both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanScenario(row rowScanner) (*models.Scenario, error) {
	var (
		s           models.Scenario
		policy      string
		allocations []byte
	)
	err := row.Scan(
		&s.ID, &s.Name, &s.StartDate, &s.EndDate,
		&s.InitialAmount, &s.MonthlySalary, &s.MonthlyLivingCost,
		&s.MonthlyContribution, &s.MinimumCashReserve,
		&policy, &allocations, &s.BenchmarkTicker, &s.RiskFreeRate,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.DividendPolicy = models.DividendPolicy(policy)
	if err := json.Unmarshal(allocations, &s.Allocations); err != nil {
		return nil, fmt.Errorf("decoding allocations: %w", err)
	}
	return &s, nil
}
