package dto

// Warning codes returned by the external read API.
const (
	WarningCodeNoAccess      = "1"
	WarningCodeNotAvailable  = "2"
	WarningCodeNoSubmissions = "3"
)

// Warning reports a per-item failure inside an otherwise successful bulk
// read. Warnings never abort the request.
type Warning struct {
	Item        string `json:"item"`
	ItemID      uint   `json:"itemid"`
	WarningCode string `json:"warningcode"`
	Message     string `json:"message"`
}

// GetAssignmentsRequest are the query parameters of the assignment listing.
type GetAssignmentsRequest struct {
	CourseIDs    []uint   `query:"course_ids" validate:"dive,gt=0"`
	Capabilities []string `query:"capabilities" validate:"dive,min=1"`
}

// GetSubmissionsRequest are the query parameters of the submission listing.
// Since/Before are unix seconds; zero disables the bound.
type GetSubmissionsRequest struct {
	AssignmentIDs []uint `query:"assignment_ids" validate:"required,min=1,dive,gt=0"`
	Status        string `query:"status" validate:"omitempty,oneof=draft submitted"`
	Since         int64  `query:"since" validate:"gte=0"`
	Before        int64  `query:"before" validate:"gte=0"`
}

// ExternalCourse is one course entry in the assignment listing.
type ExternalCourse struct {
	ID           uint                 `json:"id"`
	FullName     string               `json:"fullname"`
	ShortName    string               `json:"shortname"`
	TimeModified int64                `json:"timemodified"`
	Assignments  []ExternalAssignment `json:"assignments"`
}

// ExternalAssignment is one assignment entry with its plugin configuration.
type ExternalAssignment struct {
	ID                       uint             `json:"id"`
	Course                   uint             `json:"course"`
	Name                     string           `json:"name"`
	PreventLateSubmissions   bool             `json:"preventlatesubmissions"`
	SubmissionDrafts         bool             `json:"submissiondrafts"`
	SendNotifications        bool             `json:"sendnotifications"`
	DueDate                  int64            `json:"duedate"`
	AllowSubmissionsFromDate int64            `json:"allowsubmissionsfromdate"`
	Grade                    int              `json:"grade"`
	TimeModified             int64            `json:"timemodified"`
	Configs                  []ConfigResponse `json:"configs"`
}

// GetAssignmentsResponse is the full result of the assignment listing.
type GetAssignmentsResponse struct {
	Courses  []ExternalCourse `json:"courses"`
	Warnings []Warning        `json:"warnings"`
}

// ExternalFile is one stored blob attached to a submission.
type ExternalFile struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified int64  `json:"modified"`
}

// ExternalSubmission is one submission entry with its attachments. The
// online text is stripped of markup.
type ExternalSubmission struct {
	ID           uint           `json:"id"`
	UserID       uint           `json:"userid"`
	Status       string         `json:"status"`
	OnlineText   string         `json:"onlinetext"`
	TimeCreated  int64          `json:"timecreated"`
	TimeModified int64          `json:"timemodified"`
	Files        []ExternalFile `json:"files"`
}

// AssignmentSubmissions groups the submissions found for one assignment.
type AssignmentSubmissions struct {
	AssignmentID uint                 `json:"assignmentid"`
	Submissions  []ExternalSubmission `json:"submissions"`
}

// GetSubmissionsResponse is the full result of the submission listing.
type GetSubmissionsResponse struct {
	Assignments []AssignmentSubmissions `json:"assignments"`
	Warnings    []Warning               `json:"warnings"`
}
