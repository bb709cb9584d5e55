package export

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"healthdash/internal/dashboard"
	"healthdash/internal/record"
)

// Schema creates the sink tables when they do not exist.
//
//go:embed schema.sql
var Schema string

var encounterColumns = []string{
	"run_id", "row_num", "name", "age", "gender", "medical_condition",
	"billing_amount", "admission_type", "admission_date", "discharge_date",
	"length_of_stay", "blood_type", "hospital", "doctor", "insurance_provider",
	"room_number", "medication", "test_results",
}

// LoadResult describes one Postgres load.
type LoadResult struct {
	RunID      uuid.UUID
	Encounters int64
	Panels     int
}

// LoadPostgres stores one run: a dashboard_runs row keyed by a fresh UUID,
// the analysis set COPYed into encounters batchSize rows at a time, and
// every panel as JSONB in dashboard_panels. Everything commits in a single
// transaction, so a failed load leaves no partial run behind.
func LoadPostgres(ctx context.Context, connStr string, d *dashboard.Dashboard, batchSize int, logger *zap.Logger) (LoadResult, error) {
	logger = logger.With(zap.String("component", "postgres"))
	start := time.Now()

	if batchSize < 1 {
		batchSize = 5000
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return LoadResult{}, fmt.Errorf("parse connection: %w", err)
	}
	poolConfig.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return LoadResult{}, fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return LoadResult{}, fmt.Errorf("ping: %w", err)
	}
	logger.Debug("connected to postgres")

	if _, err := pool.Exec(ctx, Schema); err != nil {
		return LoadResult{}, fmt.Errorf("init schema: %w", err)
	}

	res := LoadResult{RunID: uuid.New()}
	runID := pgtype.UUID{Bytes: res.RunID, Valid: true}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return LoadResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	skipped, err := json.Marshal(d.Skipped)
	if err != nil {
		return LoadResult{}, fmt.Errorf("encode skipped panels: %w", err)
	}
	skipped = stripJSONNUL(skipped)
	if _, err := tx.Exec(ctx, `
		INSERT INTO dashboard_runs (run_id, source, format, generated_at, loaded_records, analysis_records, skipped)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		runID, sanitizeUTF8(d.Source), d.Format, d.GeneratedAt, d.LoadedRecords, d.AnalysisRecords, skipped,
	); err != nil {
		return LoadResult{}, fmt.Errorf("insert run: %w", err)
	}

	for lo := 0; lo < len(d.Records); lo += batchSize {
		hi := min(lo+batchSize, len(d.Records))
		batch := d.Records[lo:hi]
		copied, err := tx.CopyFrom(ctx, pgx.Identifier{"encounters"}, encounterColumns,
			pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
				return encounterValues(runID, lo+i+1, &batch[i]), nil
			}))
		if err != nil {
			return LoadResult{}, fmt.Errorf("copy encounters %d-%d: %w", lo+1, hi, err)
		}
		res.Encounters += copied
		logger.Debug("encounter batch copied", zap.Int("from", lo+1), zap.Int("to", hi))
	}

	for i, p := range d.Panels {
		body, err := json.Marshal(p)
		if err != nil {
			return LoadResult{}, fmt.Errorf("encode panel %s: %w", p.ID, err)
		}
		body = stripJSONNUL(body)
		if _, err := tx.Exec(ctx, `
			INSERT INTO dashboard_panels (run_id, position, panel_id, title, kind, body)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			runID, i+1, p.ID, sanitizeUTF8(p.Title), string(p.Kind), body,
		); err != nil {
			return LoadResult{}, fmt.Errorf("insert panel %s: %w", p.ID, err)
		}
		res.Panels++
	}

	if err := tx.Commit(ctx); err != nil {
		return LoadResult{}, fmt.Errorf("commit: %w", err)
	}

	logger.Info("dashboard stored in postgres",
		zap.String("run_id", res.RunID.String()),
		zap.Int64("encounters", res.Encounters),
		zap.Int("panels", res.Panels),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))
	return res, nil
}

func encounterValues(runID pgtype.UUID, rowNum int, r *record.Record) []any {
	return []any{
		runID,
		int32(rowNum),
		optToPgText(r.Name),
		optToPgInt(r.Age),
		optToPgText(r.Gender),
		optToPgText(r.MedicalCondition),
		floatToNumeric(r.BillingAmount),
		optToPgText(r.AdmissionType),
		optToPgDate(r.AdmissionDate),
		optToPgDate(r.DischargeDate),
		optToPgInt(r.LengthOfStay),
		optToPgText(r.BloodType),
		optToPgText(r.Hospital),
		optToPgText(r.Doctor),
		optToPgText(r.InsuranceProvider),
		optToPgInt(r.RoomNumber),
		optToPgText(r.Medication),
		optToPgText(r.TestResults),
	}
}

// sanitizeUTF8 replaces invalid UTF-8 bytes with spaces and drops NUL,
// which Postgres text columns reject.
func sanitizeUTF8(s string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(s, " "), "\x00", "")
}

// stripJSONNUL removes the \u0000 escapes encoding/json emits for NUL
// characters, which jsonb rejects. Escaped backslashes are copied as-is.
func stripJSONNUL(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u0000`)) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		if bytes.HasPrefix(b[i:], []byte(`\u0000`)) {
			i += 5
			continue
		}
		out = append(out, b[i], b[i+1])
		i++
	}
	return out
}

// pgtype helpers

func floatToNumeric(f *float64) pgtype.Numeric {
	if f == nil {
		return pgtype.Numeric{Valid: false}
	}
	text := big.NewFloat(*f).Text('f', -1)
	var num pgtype.Numeric
	if err := num.Scan(text); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return num
}

func optToPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: sanitizeUTF8(s), Valid: true}
}

func optToPgInt(v *int) pgtype.Int4 {
	if v == nil {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(*v), Valid: true}
}

func optToPgDate(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{Valid: false}
	}
	return pgtype.Date{Time: *t, Valid: true}
}
