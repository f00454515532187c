// Package store reads the input sales table and persists the evaluated
// forecast tables in a sqlite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/salescast/salescast/evaluate"
	"github.com/salescast/salescast/timeseries"
)

const (
	// DateLayout is the expected form of the input date column.
	DateLayout = "2006-01-02"

	// EvalTable holds the flattened evaluation rows. It is overwritten
	// wholesale on every run.
	EvalTable = "forecast_eval"

	// SummaryTable holds the aggregate accuracy summaries per partition and
	// per (series key, partition). Also overwritten wholesale.
	SummaryTable = "forecast_eval_summary"
)

var (
	ErrMissingColumn     = errors.New("input table is missing a required column")
	ErrNoKeyColumns      = errors.New("no series key columns configured")
	ErrInvalidIdentifier = errors.New("invalid table or column identifier")
)

// identifierPattern bounds the table and column names interpolated into SQL,
// since identifiers cannot be bound as query parameters.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store wraps the sqlite database holding the sales table and run output.
type Store struct {
	*sql.DB
}

// Open opens or creates the sqlite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &Store{db}, nil
}

// LoadObservations reads the input table into observations, building each
// series key from the configured dimension columns. A missing column is
// fatal since no series could be meaningfully extracted from a malformed
// table.
func (s *Store) LoadObservations(ctx context.Context, table, dateCol, valueCol string, keyCols []string) ([]timeseries.Observation, error) {
	if len(keyCols) == 0 {
		return nil, ErrNoKeyColumns
	}
	for _, ident := range append([]string{table, dateCol, valueCol}, keyCols...) {
		if !identifierPattern.MatchString(ident) {
			return nil, fmt.Errorf("%q, %w", ident, ErrInvalidIdentifier)
		}
	}
	if err := s.checkColumns(ctx, table, append([]string{dateCol, valueCol}, keyCols...)); err != nil {
		return nil, err
	}

	cols := make([]string, 0, len(keyCols)+2)
	cols = append(cols, dateCol)
	cols = append(cols, keyCols...)
	cols = append(cols, valueCol)

	rows, err := s.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), table))
	if err != nil {
		return nil, fmt.Errorf("unable to query %s, %w", table, err)
	}
	defer rows.Close()

	var obs []timeseries.Observation
	for rows.Next() {
		date := ""
		dims := make([]string, len(keyCols))
		value := 0.0

		dest := make([]any, 0, len(cols))
		dest = append(dest, &date)
		for i := range dims {
			dest = append(dest, &dims[i])
		}
		dest = append(dest, &value)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("unable to scan %s row, %w", table, err)
		}

		t, err := time.Parse(DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("unable to parse %s date %q, %w", table, date, err)
		}
		key, err := timeseries.BuildKey(dims...)
		if err != nil {
			return nil, err
		}
		obs = append(obs, timeseries.Observation{Key: key, T: t, Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return obs, nil
}

func (s *Store) checkColumns(ctx context.Context, table string, required []string) error {
	rows, err := s.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("unable to inspect %s, %w", table, err)
	}
	defer rows.Close()

	present := make(map[string]struct{})
	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return err
		}
		present[strings.ToLower(name)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, col := range required {
		if _, exists := present[strings.ToLower(col)]; !exists {
			return fmt.Errorf("table %s column %q, %w", table, col, ErrMissingColumn)
		}
	}
	return nil
}

// SaveEvaluation replaces the evaluation table with the given rows. NaN
// fields, including the undefined actuals of future rows, persist as NULL.
func (s *Store) SaveEvaluation(ctx context.Context, rows []evaluate.Row) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		DROP TABLE IF EXISTS %[1]s;
		CREATE TABLE %[1]s (
			series_key TEXT NOT NULL,
			date TEXT NOT NULL,
			forecast DOUBLE NOT NULL,
			lower DOUBLE NOT NULL,
			upper DOUBLE NOT NULL,
			actual DOUBLE,
			error DOUBLE,
			abs_error DOUBLE,
			eval_partition TEXT NOT NULL
		);
	`, EvalTable)); err != nil {
		return fmt.Errorf("unable to recreate %s, %w", EvalTable, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (series_key, date, forecast, lower, upper, actual, error, abs_error, eval_partition) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		EvalTable,
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			r.Key,
			r.T.Format(DateLayout),
			r.Forecast,
			r.Lower,
			r.Upper,
			nullable(r.Actual),
			nullable(r.Err),
			nullable(r.AbsErr),
			string(r.Partition),
		)
		if err != nil {
			return fmt.Errorf("unable to insert %s row, %w", EvalTable, err)
		}
	}
	return tx.Commit()
}

// SaveSummaries replaces the summary table with the given partition and
// per-series summaries. An undefined accuracy persists as NULL.
func (s *Store) SaveSummaries(ctx context.Context, summaries []evaluate.Summary) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		DROP TABLE IF EXISTS %[1]s;
		CREATE TABLE %[1]s (
			series_key TEXT NOT NULL,
			eval_partition TEXT NOT NULL,
			n BIGINT NOT NULL,
			sum_actual DOUBLE NOT NULL,
			sum_abs_error DOUBLE NOT NULL,
			accuracy DOUBLE,
			mape DOUBLE,
			mse DOUBLE
		);
	`, SummaryTable)); err != nil {
		return fmt.Errorf("unable to recreate %s, %w", SummaryTable, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (series_key, eval_partition, n, sum_actual, sum_abs_error, accuracy, mape, mse) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		SummaryTable,
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, sum := range summaries {
		_, err := stmt.ExecContext(ctx,
			sum.Key,
			string(sum.Partition),
			sum.N,
			sum.SumActual,
			sum.SumAbsErr,
			nullable(sum.Accuracy),
			nullable(sum.MAPE),
			nullable(sum.MSE),
		)
		if err != nil {
			return fmt.Errorf("unable to insert %s row, %w", SummaryTable, err)
		}
	}
	return tx.Commit()
}

func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
