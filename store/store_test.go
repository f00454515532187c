package store

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salescast/salescast/evaluate"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.Nil(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedSales(t *testing.T, s *Store) {
	t.Helper()

	_, err := s.Exec(`
		CREATE TABLE sales (
			date TEXT,
			store TEXT,
			item TEXT,
			sales DOUBLE
		);
	`)
	require.Nil(t, err)

	rows := [][]any{
		{"2017-01-01", "1", "1", 13.0},
		{"2017-01-02", "1", "1", 11.0},
		{"2017-01-01", "2", "1", 12.0},
	}
	for _, r := range rows {
		_, err := s.Exec("INSERT INTO sales (date, store, item, sales) VALUES (?, ?, ?, ?)", r...)
		require.Nil(t, err)
	}
}

func TestLoadObservations(t *testing.T) {
	s := openTestStore(t)
	seedSales(t, s)

	obs, err := s.LoadObservations(context.Background(), "sales", "date", "sales", []string{"store", "item"})
	require.Nil(t, err)
	require.Len(t, obs, 3)

	byKey := make(map[string]int)
	for _, o := range obs {
		byKey[o.Key]++
		if o.Key == "2_1" {
			assert.Equal(t, time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), o.T)
			assert.Equal(t, 12.0, o.Value)
		}
	}
	assert.Equal(t, map[string]int{"1_1": 2, "2_1": 1}, byKey)
}

func TestLoadObservationsMissingColumn(t *testing.T) {
	s := openTestStore(t)
	seedSales(t, s)

	testData := map[string]struct {
		dateCol  string
		valueCol string
		keyCols  []string
	}{
		"missing date column":  {"day", "sales", []string{"store", "item"}},
		"missing value column": {"date", "revenue", []string{"store", "item"}},
		"missing key column":   {"date", "sales", []string{"store", "sku"}},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := s.LoadObservations(context.Background(), "sales", td.dateCol, td.valueCol, td.keyCols)
			assert.ErrorIs(t, err, ErrMissingColumn)
		})
	}
}

func TestLoadObservationsInvalidIdentifier(t *testing.T) {
	s := openTestStore(t)
	seedSales(t, s)

	testData := map[string]struct {
		table    string
		dateCol  string
		valueCol string
		keyCols  []string
	}{
		"table with statement": {"sales; DROP TABLE sales", "date", "sales", []string{"store"}},
		"column with quote":    {"sales", `date"`, "sales", []string{"store"}},
		"column with space":    {"sales", "date", "sales total", []string{"store"}},
		"key column with dash": {"sales", "date", "sales", []string{"store-id"}},
		"leading digit":        {"1sales", "date", "sales", []string{"store"}},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := s.LoadObservations(context.Background(), td.table, td.dateCol, td.valueCol, td.keyCols)
			assert.ErrorIs(t, err, ErrInvalidIdentifier)
		})
	}
}

func TestLoadObservationsNoKeyColumns(t *testing.T) {
	s := openTestStore(t)
	seedSales(t, s)

	_, err := s.LoadObservations(context.Background(), "sales", "date", "sales", nil)
	assert.ErrorIs(t, err, ErrNoKeyColumns)
}

func TestSaveEvaluationRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rows := []evaluate.Row{
		{
			Key: "1_1", T: time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC),
			Forecast: 10, Lower: 9, Upper: 11,
			Actual: 10, Err: 0, AbsErr: 0,
			Partition: evaluate.Train,
		},
		{
			Key: "1_1", T: time.Date(2017, 1, 2, 0, 0, 0, 0, time.UTC),
			Forecast: 10, Lower: 9, Upper: 11,
			Actual: math.NaN(), Err: math.NaN(), AbsErr: math.NaN(),
			Partition: evaluate.Test,
		},
	}
	require.Nil(t, s.SaveEvaluation(ctx, rows))

	var count int
	require.Nil(t, s.QueryRow("SELECT COUNT(*) FROM "+EvalTable).Scan(&count))
	assert.Equal(t, 2, count)

	// the future row's actual persists as NULL, not NaN
	var actual sql.NullFloat64
	require.Nil(t, s.QueryRow(
		"SELECT actual FROM "+EvalTable+" WHERE eval_partition = 'TEST'",
	).Scan(&actual))
	assert.False(t, actual.Valid)
}

func TestSaveEvaluationOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := []evaluate.Row{
		{Key: "old", T: time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC), Partition: evaluate.Train},
	}
	require.Nil(t, s.SaveEvaluation(ctx, first))

	second := []evaluate.Row{
		{Key: "new", T: time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), Partition: evaluate.Train},
		{Key: "new", T: time.Date(2017, 1, 2, 0, 0, 0, 0, time.UTC), Partition: evaluate.Train},
	}
	require.Nil(t, s.SaveEvaluation(ctx, second))

	var count int
	require.Nil(t, s.QueryRow(
		"SELECT COUNT(*) FROM "+EvalTable+" WHERE series_key = 'old'",
	).Scan(&count))
	assert.Equal(t, 0, count, "prior run rows must not survive an overwrite")

	require.Nil(t, s.QueryRow("SELECT COUNT(*) FROM "+EvalTable).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestSaveSummaries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	summaries := []evaluate.Summary{
		{Partition: evaluate.Train, N: 10, SumActual: 100, SumAbsErr: 0, Accuracy: 1, MAPE: 0, MSE: 0},
		{Partition: evaluate.Test, N: 2, SumActual: 0, SumAbsErr: 4, Accuracy: math.NaN(), MAPE: math.NaN(), MSE: 4},
	}
	require.Nil(t, s.SaveSummaries(ctx, summaries))

	var accuracy sql.NullFloat64
	require.Nil(t, s.QueryRow(
		"SELECT accuracy FROM "+SummaryTable+" WHERE eval_partition = 'TEST'",
	).Scan(&accuracy))
	assert.False(t, accuracy.Valid, "undefined accuracy persists as NULL")

	require.Nil(t, s.QueryRow(
		"SELECT accuracy FROM "+SummaryTable+" WHERE eval_partition = 'TRAIN'",
	).Scan(&accuracy))
	require.True(t, accuracy.Valid)
	assert.Equal(t, 1.0, accuracy.Float64)
}
