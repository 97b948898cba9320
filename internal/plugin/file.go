package plugin

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/storage"
)

const filePluginName = "file"

// Types students are allowed to upload.
var allowedFileTypes = map[string]bool{
	"application/pdf":    true,
	"application/zip":    true,
	"text/plain":         true,
	"text/html":          true,
	"image/png":          true,
	"image/jpeg":         true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

type filePlugin struct {
	store storage.FileStore
}

// NewFilePlugin builds the file-upload submission type backed by the given
// file store.
func NewFilePlugin(store storage.FileStore) SubmissionPlugin {
	return &filePlugin{store: store}
}

func (p *filePlugin) Name() string        { return filePluginName }
func (p *filePlugin) DisplayName() string { return "File submissions" }

func (p *filePlugin) Settings() []SettingField {
	return []SettingField{
		{
			Type:        SettingSelect,
			Name:        "maxfiles",
			Description: "Maximum number of uploaded files",
			Options: map[string]string{
				"0": "none", "1": "1", "5": "5", "20": "20",
			},
			Default: "0",
		},
	}
}

func (p *filePlugin) SaveSettings(assignment models.Assignment) []models.AssignPluginConfig {
	return []models.AssignPluginConfig{
		{
			AssignmentID: assignment.ID,
			Plugin:       filePluginName,
			Subtype:      "assignsubmission",
			Name:         "maxfiles",
			Value:        strconv.Itoa(assignment.MaxFilesSubmission),
		},
	}
}

func (p *filePlugin) FormElements(assignment models.Assignment, _ models.Submission) []FormElement {
	return []FormElement{
		{Type: "filemanager", Name: "files", Label: "File submissions", Value: strconv.Itoa(assignment.MaxFilesSubmission)},
	}
}

func (p *filePlugin) Save(ctx context.Context, assignment models.Assignment, submission *models.Submission, data SaveData) error {
	if !p.Enabled(assignment) {
		return nil
	}

	key := storage.AreaKey{
		ContextID: assignment.ID,
		Component: storage.Component,
		Area:      storage.AreaSubmissionFiles,
		ItemID:    submission.UserID,
	}

	existing, err := storage.CountFiles(ctx, p.store, key)
	if err != nil {
		return err
	}
	if existing+len(data.Files) > assignment.MaxFilesSubmission {
		return fmt.Errorf("at most %d files may be submitted", assignment.MaxFilesSubmission)
	}

	for _, file := range data.Files {
		content, err := io.ReadAll(file.Reader)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file.Name, err)
		}
		kind := mimetype.Detect(content)
		if !allowedFileTypes[kind.String()] {
			return fmt.Errorf("file type %s is not accepted", kind.String())
		}
		if err := p.store.Put(ctx, key, file.Name, bytes.NewReader(content), int64(len(content))); err != nil {
			return fmt.Errorf("failed to store %s: %w", file.Name, err)
		}
	}

	count, err := storage.CountFiles(ctx, p.store, key)
	if err != nil {
		return err
	}
	submission.NumFiles = count
	return nil
}

func (p *filePlugin) Enabled(assignment models.Assignment) bool {
	return assignment.MaxFilesSubmission > 0
}
