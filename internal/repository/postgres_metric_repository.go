package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
)

const metricColumns = `
	steps, sleep_hours, sleep_light_hours, sleep_deep_hours, sleep_rem_hours, sleep_awake_hours,
	water_ml, weight_kg, resting_heart_rate, systolic_bp, diastolic_bp, oxygen_saturation_pct,
	body_temperature_c, blood_glucose_mmol_l, reproductive_events_count, calories
`

// upsertMetricEntrySQL leaves mood_score and note alone so user annotations survive a re-sync
const upsertMetricEntrySQL = `
	INSERT INTO health_metric_entries (
		user_id, recorded_for, source,` + metricColumns + `, metadata
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20::jsonb)
	ON CONFLICT ON CONSTRAINT health_metric_entries_user_day_source_key DO UPDATE SET
		steps = EXCLUDED.steps,
		sleep_hours = EXCLUDED.sleep_hours,
		sleep_light_hours = EXCLUDED.sleep_light_hours,
		sleep_deep_hours = EXCLUDED.sleep_deep_hours,
		sleep_rem_hours = EXCLUDED.sleep_rem_hours,
		sleep_awake_hours = EXCLUDED.sleep_awake_hours,
		water_ml = EXCLUDED.water_ml,
		weight_kg = EXCLUDED.weight_kg,
		resting_heart_rate = EXCLUDED.resting_heart_rate,
		systolic_bp = EXCLUDED.systolic_bp,
		diastolic_bp = EXCLUDED.diastolic_bp,
		oxygen_saturation_pct = EXCLUDED.oxygen_saturation_pct,
		body_temperature_c = EXCLUDED.body_temperature_c,
		blood_glucose_mmol_l = EXCLUDED.blood_glucose_mmol_l,
		reproductive_events_count = EXCLUDED.reproductive_events_count,
		calories = EXCLUDED.calories,
		metadata = EXCLUDED.metadata,
		updated_at = now()
`

// PostgresMetricRepository implements MetricRepository using PostgreSQL
type PostgresMetricRepository struct {
	db *pgxpool.Pool
}

// NewPostgresMetricRepository creates a new PostgreSQL metric repository
func NewPostgresMetricRepository(db *pgxpool.Pool) *PostgresMetricRepository {
	return &PostgresMetricRepository{db: db}
}

// UpsertEntries writes all entries in one transaction. Re-running with the same
// entries leaves the table unchanged apart from updated_at.
func (r *PostgresMetricRepository) UpsertEntries(ctx context.Context, entries []domain.HealthMetricEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for i := range entries {
		entry := &entries[i]
		metadata := entry.Metadata
		if metadata == nil {
			metadata = map[string]interface{}{}
		}
		metadataJSON, err := json.Marshal(metadata)
		if err != nil {
			return 0, fmt.Errorf("failed to encode entry metadata: %w", err)
		}

		v := entry.MetricValues
		batch.Queue(upsertMetricEntrySQL,
			entry.UserID, entry.RecordedFor, entry.Source,
			v.Steps, v.SleepHours, v.SleepLightHours, v.SleepDeepHours, v.SleepREMHours, v.SleepAwakeHours,
			v.WaterML, v.WeightKG, v.RestingHeartRate, v.SystolicBP, v.DiastolicBP, v.OxygenSaturationPct,
			v.BodyTemperatureC, v.BloodGlucoseMmolL, v.ReproductiveEventsCount, v.Calories,
			string(metadataJSON),
		)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // Rollback if not committed

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return 0, &RepositoryError{Op: "upsert_metric_entries", Err: err}
		}
	}
	if err := results.Close(); err != nil {
		return 0, &RepositoryError{Op: "upsert_metric_entries", Err: err}
	}

	// Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return len(entries), nil
}

// ListEntries returns a user's entries for one source within [from, to], oldest first
func (r *PostgresMetricRepository) ListEntries(ctx context.Context, userID, source string, from, to time.Time) ([]domain.HealthMetricEntry, error) {
	query := `
		SELECT id, user_id, recorded_for, source,` + metricColumns + `, mood_score, note, metadata, created_at, updated_at
		FROM health_metric_entries
		WHERE user_id = $1 AND source = $2 AND recorded_for BETWEEN $3 AND $4
		ORDER BY recorded_for
	`

	rows, err := r.db.Query(ctx, query, userID, source, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query metric entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.HealthMetricEntry{}
	for rows.Next() {
		var entry domain.HealthMetricEntry
		var metadataJSON []byte
		v := &entry.MetricValues
		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.RecordedFor, &entry.Source,
			&v.Steps, &v.SleepHours, &v.SleepLightHours, &v.SleepDeepHours, &v.SleepREMHours, &v.SleepAwakeHours,
			&v.WaterML, &v.WeightKG, &v.RestingHeartRate, &v.SystolicBP, &v.DiastolicBP, &v.OxygenSaturationPct,
			&v.BodyTemperatureC, &v.BloodGlucoseMmolL, &v.ReproductiveEventsCount, &v.Calories,
			&entry.MoodScore, &entry.Note, &metadataJSON, &entry.CreatedAt, &entry.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metric entry: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode entry metadata: %w", err)
			}
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metric entries: %w", err)
	}

	return entries, nil
}
