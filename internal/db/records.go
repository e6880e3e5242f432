package db

import (
	"database/sql"
	"fmt"
	"time"
)

// EstimateRecord is one published fusion update. X and Y are nil when no
// position was available.
type EstimateRecord struct {
	RunID      string    `json:"run_id"`
	State      string    `json:"state"`
	X          *float64  `json:"x_km"`
	Y          *float64  `json:"y_km"`
	Sources    int       `json:"sources"`
	Degenerate bool      `json:"degenerate"`
	ObservedAt time.Time `json:"observed_at"`
}

// EchoRecord is one located radar echo.
type EchoRecord struct {
	RunID      string    `json:"run_id"`
	Range      float64   `json:"range_km"`
	Bearing    float64   `json:"bearing_deg"`
	Power      float64   `json:"power"`
	ObservedAt time.Time `json:"observed_at"`
}

// RecordEstimate appends rec under this process's run id unless rec carries
// its own.
func (db *DB) RecordEstimate(rec EstimateRecord) error {
	if rec.RunID == "" {
		rec.RunID = db.runID
	}
	_, err := db.Exec(
		`INSERT INTO estimates (run_id, state, x_km, y_km, sources, degenerate, observed_at_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.State, nullFloat(rec.X), nullFloat(rec.Y),
		rec.Sources, rec.Degenerate, rec.ObservedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record estimate: %w", err)
	}
	return nil
}

// RecentEstimates returns up to limit estimates, newest first.
func (db *DB) RecentEstimates(limit int) ([]EstimateRecord, error) {
	rows, err := db.Query(
		`SELECT run_id, state, x_km, y_km, sources, degenerate, observed_at_ns
		 FROM estimates ORDER BY estimate_id DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []EstimateRecord{}
	for rows.Next() {
		var (
			rec  EstimateRecord
			x, y sql.NullFloat64
			ns   int64
		)
		if err := rows.Scan(&rec.RunID, &rec.State, &x, &y, &rec.Sources, &rec.Degenerate, &ns); err != nil {
			return nil, err
		}
		if x.Valid {
			rec.X = &x.Float64
		}
		if y.Valid {
			rec.Y = &y.Float64
		}
		rec.ObservedAt = time.Unix(0, ns).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RecordEchoes appends a batch of echoes in one transaction.
func (db *DB) RecordEchoes(recs []EchoRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO echoes (run_id, range_km, bearing_deg, power, observed_at_ns) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range recs {
		if rec.RunID == "" {
			rec.RunID = db.runID
		}
		if _, err := stmt.Exec(rec.RunID, rec.Range, rec.Bearing, rec.Power, rec.ObservedAt.UnixNano()); err != nil {
			return fmt.Errorf("failed to record echo: %w", err)
		}
	}
	return tx.Commit()
}

// RecentEchoes returns up to limit echoes, newest first.
func (db *DB) RecentEchoes(limit int) ([]EchoRecord, error) {
	rows, err := db.Query(
		`SELECT run_id, range_km, bearing_deg, power, observed_at_ns
		 FROM echoes ORDER BY echo_id DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []EchoRecord{}
	for rows.Next() {
		var (
			rec EchoRecord
			ns  int64
		)
		if err := rows.Scan(&rec.RunID, &rec.Range, &rec.Bearing, &rec.Power, &ns); err != nil {
			return nil, err
		}
		rec.ObservedAt = time.Unix(0, ns).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MaxHistory caps a single history query.
const MaxHistory = 1000

func clampLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > MaxHistory {
		return MaxHistory
	}
	return limit
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
