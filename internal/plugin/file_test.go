package plugin

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/storage"
)

func fileUpload(name, content string) UploadedFile {
	return UploadedFile{Name: name, Size: int64(len(content)), Reader: strings.NewReader(content)}
}

func TestFilePluginStoresUploads(t *testing.T) {
	store := storage.NewMemoryStore()
	p := NewFilePlugin(store)
	assignment := models.Assignment{ID: 1, MaxFilesSubmission: 2}
	submission := models.Submission{AssignmentID: 1, UserID: 10}

	err := p.Save(context.Background(), assignment, &submission, SaveData{
		Files: []UploadedFile{fileUpload("notes.txt", "plain text content")},
	})
	require.NoError(t, err)
	require.Equal(t, 1, submission.NumFiles)

	files, err := store.List(context.Background(), storage.AreaKey{
		ContextID: 1,
		Component: storage.Component,
		Area:      storage.AreaSubmissionFiles,
		ItemID:    10,
	})
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "notes.txt", files[0].Name)
}

func TestFilePluginEnforcesMaxFiles(t *testing.T) {
	store := storage.NewMemoryStore()
	p := NewFilePlugin(store)
	assignment := models.Assignment{ID: 1, MaxFilesSubmission: 1}
	submission := models.Submission{AssignmentID: 1, UserID: 10}

	err := p.Save(context.Background(), assignment, &submission, SaveData{
		Files: []UploadedFile{fileUpload("a.txt", "first file")},
	})
	require.NoError(t, err)

	err = p.Save(context.Background(), assignment, &submission, SaveData{
		Files: []UploadedFile{fileUpload("b.txt", "second file")},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "at most 1 files")
}

func TestFilePluginRejectsUnknownType(t *testing.T) {
	store := storage.NewMemoryStore()
	p := NewFilePlugin(store)
	assignment := models.Assignment{ID: 1, MaxFilesSubmission: 5}
	submission := models.Submission{AssignmentID: 1, UserID: 10}

	// An ELF header is not on the accepted type list.
	err := p.Save(context.Background(), assignment, &submission, SaveData{
		Files: []UploadedFile{fileUpload("tool", "\x7fELF\x02\x01\x01\x00\x00\x00\x00\x00")},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not accepted")
}

func TestFilePluginDisabledWithoutLimit(t *testing.T) {
	p := NewFilePlugin(storage.NewMemoryStore())

	require.False(t, p.Enabled(models.Assignment{}))
	require.True(t, p.Enabled(models.Assignment{MaxFilesSubmission: 3}))

	submission := models.Submission{UserID: 10}
	err := p.Save(context.Background(), models.Assignment{ID: 1}, &submission, SaveData{
		Files: []UploadedFile{fileUpload("a.txt", "content")},
	})
	require.NoError(t, err)
	require.Zero(t, submission.NumFiles)
}
