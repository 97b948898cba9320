package plugin

import (
	"context"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
)

const onlineTextName = "onlinetext"

type onlineTextPlugin struct {
	sanitizer *bluemonday.Policy
}

// NewOnlineTextPlugin builds the online-text submission type.
func NewOnlineTextPlugin() SubmissionPlugin {
	return &onlineTextPlugin{sanitizer: bluemonday.UGCPolicy()}
}

func (p *onlineTextPlugin) Name() string        { return onlineTextName }
func (p *onlineTextPlugin) DisplayName() string { return "Online text" }

func (p *onlineTextPlugin) Settings() []SettingField {
	return []SettingField{
		{
			Type:        SettingCheckbox,
			Name:        "enabled",
			Description: "Allow students to type their submission directly into an editor",
			Default:     "0",
		},
	}
}

func (p *onlineTextPlugin) SaveSettings(assignment models.Assignment) []models.AssignPluginConfig {
	return []models.AssignPluginConfig{
		{
			AssignmentID: assignment.ID,
			Plugin:       onlineTextName,
			Subtype:      "assignsubmission",
			Name:         "enabled",
			Value:        boolValue(assignment.OnlineTextSubmission),
		},
	}
}

func (p *onlineTextPlugin) FormElements(_ models.Assignment, submission models.Submission) []FormElement {
	return []FormElement{
		{Type: "editor", Name: "onlinetext", Label: "Online text", Value: submission.OnlineText},
	}
}

func (p *onlineTextPlugin) Save(_ context.Context, assignment models.Assignment, submission *models.Submission, data SaveData) error {
	if !p.Enabled(assignment) {
		return nil
	}
	submission.OnlineText = p.sanitizer.Sanitize(data.OnlineText)
	submission.OnlineFormat = data.OnlineFormat
	return nil
}

func (p *onlineTextPlugin) Enabled(assignment models.Assignment) bool {
	return assignment.OnlineTextSubmission
}

// StripOnlineText removes all markup from an online-text payload for display
// and audit summaries.
func StripOnlineText(text string) string {
	return strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(text))
}

// WordCount counts the words of an online-text payload after stripping markup.
func WordCount(text string) int {
	return len(strings.Fields(StripOnlineText(text)))
}

func boolValue(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
