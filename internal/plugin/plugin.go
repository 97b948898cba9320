package plugin

import (
	"context"
	"io"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
)

// Setting field types understood by the settings form renderer.
const (
	SettingCheckbox = "checkbox"
	SettingSelect   = "select"
)

// SettingField declares one configurable assignment setting a plugin owns.
type SettingField struct {
	Type        string
	Name        string
	Description string
	Options     map[string]string
	Default     string
}

// FormElement is one element a plugin contributes to the submission form.
type FormElement struct {
	Type  string
	Name  string
	Label string
	Value string
}

// UploadedFile is one file carried in a submission save request.
type UploadedFile struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// SaveData carries the student-entered payload handed to every enabled
// plugin during a submission save.
type SaveData struct {
	OnlineText   string
	OnlineFormat int
	Comment      string
	Files        []UploadedFile
}

// SubmissionPlugin is the fixed capability set every submission type
// implements. Plugins are registered explicitly at startup; there is no
// dynamic discovery.
type SubmissionPlugin interface {
	Name() string
	DisplayName() string
	Settings() []SettingField
	// SaveSettings maps assignment-level settings into plugin config rows.
	// It returns new rows rather than mutating the assignment.
	SaveSettings(assignment models.Assignment) []models.AssignPluginConfig
	FormElements(assignment models.Assignment, submission models.Submission) []FormElement
	// Save applies the student payload to the submission record and any
	// side stores (file areas). Mutates only the passed submission.
	Save(ctx context.Context, assignment models.Assignment, submission *models.Submission, data SaveData) error
	Enabled(assignment models.Assignment) bool
}

// Registry holds the statically registered submission plugins in
// registration order.
type Registry struct {
	plugins []SubmissionPlugin
	byName  map[string]SubmissionPlugin
}

// NewRegistry builds a registry from the given plugins.
func NewRegistry(plugins ...SubmissionPlugin) *Registry {
	registry := &Registry{byName: make(map[string]SubmissionPlugin, len(plugins))}
	for _, p := range plugins {
		registry.plugins = append(registry.plugins, p)
		registry.byName[p.Name()] = p
	}
	return registry
}

// All returns every registered plugin in registration order.
func (r *Registry) All() []SubmissionPlugin {
	return r.plugins
}

// Get looks a plugin up by name.
func (r *Registry) Get(name string) (SubmissionPlugin, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// AnyEnabled reports whether at least one plugin accepts submissions for the
// assignment. Assignments with no enabled plugin cannot be submitted to.
func (r *Registry) AnyEnabled(assignment models.Assignment) bool {
	for _, p := range r.plugins {
		if p.Enabled(assignment) {
			return true
		}
	}
	return false
}
