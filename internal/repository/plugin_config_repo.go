package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
)

// PluginConfigRepository stores per-assignment plugin settings.
type PluginConfigRepository interface {
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.AssignPluginConfig, error)
	// Replace swaps the full config set of an assignment atomically.
	Replace(ctx context.Context, assignmentID uint, configs []models.AssignPluginConfig) error
}

type pluginConfigRepository struct {
	db *gorm.DB
}

// NewPluginConfigRepository instantiates the repository.
func NewPluginConfigRepository(db *gorm.DB) PluginConfigRepository {
	return &pluginConfigRepository{db: db}
}

func (r *pluginConfigRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.AssignPluginConfig, error) {
	var configs []models.AssignPluginConfig
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("plugin ASC, name ASC").
		Find(&configs).Error
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *pluginConfigRepository) Replace(ctx context.Context, assignmentID uint, configs []models.AssignPluginConfig) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assignment_id = ?", assignmentID).Delete(&models.AssignPluginConfig{}).Error; err != nil {
			return err
		}
		if len(configs) == 0 {
			return nil
		}
		for i := range configs {
			configs[i].ID = 0
			configs[i].AssignmentID = assignmentID
		}
		return tx.Create(&configs).Error
	})
}
