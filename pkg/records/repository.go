// Package records stores extraction results with gorm.
package records

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("extraction record not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&ExtractionRecord{})
}

func (r *Repository) Save(ctx context.Context, rec *ExtractionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.ExtractedAt.IsZero() {
		rec.ExtractedAt = rec.CreatedAt
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *Repository) Get(ctx context.Context, id string) (*ExtractionRecord, error) {
	var rec ExtractionRecord
	result := r.db.WithContext(ctx).First(&rec, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &rec, nil
}

// Latest returns the most recent extraction stored for a transcript.
func (r *Repository) Latest(ctx context.Context, transcriptID string) (*ExtractionRecord, error) {
	var rec ExtractionRecord
	result := r.db.WithContext(ctx).
		Where("transcript_id = ?", transcriptID).
		Order("created_at DESC").
		First(&rec)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &rec, nil
}

// ListByTranscript returns every extraction for a transcript, newest first.
func (r *Repository) ListByTranscript(ctx context.Context, transcriptID string) ([]ExtractionRecord, error) {
	var recs []ExtractionRecord
	err := r.db.WithContext(ctx).
		Where("transcript_id = ?", transcriptID).
		Order("created_at DESC").
		Find(&recs).Error
	return recs, err
}

func (r *Repository) CleanupExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-ttl)
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&ExtractionRecord{})
	return result.RowsAffected, result.Error
}
