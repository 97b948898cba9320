package dto

import "time"

// GradingTableRequest describes the query parameters of the grading table.
type GradingTableRequest struct {
	Filter   string `query:"filter" validate:"omitempty,oneof=submitted require_grading"`
	SortBy   string `query:"sort_by" validate:"omitempty,oneof=last_name first_name email status grade time_submitted time_marked"`
	SortDesc bool   `query:"sort_desc"`
	Page     int    `query:"page" validate:"gte=0"`
	PageSize int    `query:"page_size" validate:"gte=0,lte=200"`
}

// GradingTableRowResponse is one rendered grading table row. Missing
// submission or grade data renders as the effective defaults rather than
// being omitted.
type GradingTableRowResponse struct {
	UserID        uint       `json:"user_id"`
	FullName      string     `json:"full_name"`
	Email         string     `json:"email"`
	Status        string     `json:"status"`
	GradeDisplay  string     `json:"grade_display"`
	Comment       string     `json:"comment"`
	Feedback      string     `json:"feedback"`
	Locked        bool       `json:"locked"`
	TimeSubmitted *time.Time `json:"time_submitted"`
	TimeMarked    *time.Time `json:"time_marked"`
}

// GradingTablePage is one page of the grading table plus the filtered total.
type GradingTablePage struct {
	Rows     []GradingTableRowResponse `json:"rows"`
	Total    int64                     `json:"total"`
	Page     int                       `json:"page"`
	PageSize int                       `json:"page_size"`
}

// GradingPreferences is the per-teacher view preference persisted between
// grading sessions.
type GradingPreferences struct {
	PageSize int    `json:"page_size" validate:"gte=1,lte=200"`
	Filter   string `json:"filter" validate:"omitempty,oneof=submitted require_grading"`
}
