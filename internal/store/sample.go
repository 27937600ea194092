package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/detector"
)

// Sample is a labelled hand pose kept for calibration.
type Sample struct {
	ID        string             `json:"id"`
	Label     string             `json:"label"`
	Points    []detector.Point3D `json:"points"`
	CreatedAt time.Time          `json:"created_at"`
}

// Hand returns the sample as HandLandmarks.
func (s *Sample) Hand() (detector.HandLandmarks, error) {
	return detector.FromPoints(s.Points)
}

// SampleRepository provides CRUD operations for samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Create stores a labelled sample. The point list must hold exactly 21
// landmarks.
func (r *SampleRepository) Create(label string, points []detector.Point3D) (*Sample, error) {
	if _, err := detector.FromPoints(points); err != nil {
		return nil, err
	}

	data, err := json.Marshal(points)
	if err != nil {
		return nil, fmt.Errorf("marshal points: %w", err)
	}

	sample := &Sample{
		ID:        uuid.New().String(),
		Label:     label,
		Points:    points,
		CreatedAt: time.Now(),
	}

	_, err = r.db.Exec(
		`INSERT INTO samples (id, label, points, created_at) VALUES (?, ?, ?, ?)`,
		sample.ID, sample.Label, string(data), sample.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sample, nil
}

// GetByID retrieves a sample by its ID.
func (r *SampleRepository) GetByID(id string) (*Sample, error) {
	row := r.db.QueryRow(
		`SELECT id, label, points, created_at FROM samples WHERE id = ?`,
		id,
	)
	sample, err := scanSample(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sample, err
}

// List returns all samples ordered by label, oldest first within a label.
func (r *SampleRepository) List() ([]*Sample, error) {
	return r.query(`SELECT id, label, points, created_at FROM samples ORDER BY label, created_at`)
}

// ListByLabel returns the samples recorded for one label.
func (r *SampleRepository) ListByLabel(label string) ([]*Sample, error) {
	return r.query(
		`SELECT id, label, points, created_at FROM samples WHERE label = ? ORDER BY created_at`,
		label,
	)
}

// Delete removes a sample.
func (r *SampleRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM samples WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SampleRepository) query(q string, args ...any) ([]*Sample, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []*Sample
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSample(row scanner) (*Sample, error) {
	sample := &Sample{}
	var data string
	if err := row.Scan(&sample.ID, &sample.Label, &data, &sample.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &sample.Points); err != nil {
		return nil, fmt.Errorf("decode points for sample %s: %w", sample.ID, err)
	}
	return sample, nil
}
