package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
)

// AuditLogRepository appends and reads lifecycle audit entries.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLogEntry) error
	ListByAssignment(ctx context.Context, assignmentID uint, limit int) ([]models.AuditLogEntry, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository instantiates the repository.
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditLogRepository) ListByAssignment(ctx context.Context, assignmentID uint, limit int) ([]models.AuditLogEntry, error) {
	query := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []models.AuditLogEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
