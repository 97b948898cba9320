package service

import "errors"

// ErrAssignmentNotFound indicates the assignment does not exist.
var ErrAssignmentNotFound = errors.New("assignment not found")

// ErrSubmissionNotFound indicates no submission exists for the user.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrUserNotFound indicates the referenced user does not exist.
var ErrUserNotFound = errors.New("user not found")

// ErrSubmissionLocked indicates the grade record is locked and student
// submission mutations are refused.
var ErrSubmissionLocked = errors.New("submission is locked")

// ErrSubmissionsClosed indicates the submission window is closed or the
// submission is already final.
var ErrSubmissionsClosed = errors.New("submissions are closed")

// ErrGradeOutOfRange indicates a grade value outside the assignment's
// grading descriptor.
var ErrGradeOutOfRange = errors.New("grade out of range")

// ErrNoSubmissionPlugins indicates no submission type is enabled for the
// assignment, so nothing can be saved.
var ErrNoSubmissionPlugins = errors.New("no submission plugin enabled")
