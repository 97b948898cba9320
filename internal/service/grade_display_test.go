package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
)

func TestDisplayGradePoints(t *testing.T) {
	courses := &fakeCourseRepo{}
	assignment := models.Assignment{Grade: 100}

	require.Equal(t, "87.50 / 100", DisplayGrade(context.Background(), courses, assignment, 87.5))
	require.Equal(t, "0.00 / 100", DisplayGrade(context.Background(), courses, assignment, 0))
}

func TestDisplayGradeUngradedSentinel(t *testing.T) {
	courses := &fakeCourseRepo{}
	assignment := models.Assignment{Grade: 100}

	require.Equal(t, "-", DisplayGrade(context.Background(), courses, assignment, -1))
}

func TestDisplayGradeWithoutGrading(t *testing.T) {
	courses := &fakeCourseRepo{}
	assignment := models.Assignment{Grade: 0}

	require.Empty(t, DisplayGrade(context.Background(), courses, assignment, 5))
}

func TestDisplayGradeScale(t *testing.T) {
	courses := &fakeCourseRepo{scales: map[uint]models.Scale{
		3: {ID: 3, Name: "Competence", Items: "Not yet, Competent, Outstanding"},
	}}
	assignment := models.Assignment{Grade: -3}

	require.Equal(t, "Not yet", DisplayGrade(context.Background(), courses, assignment, 1))
	require.Equal(t, "Outstanding", DisplayGrade(context.Background(), courses, assignment, 3))
	// values land on the nearest item when the stored float drifts
	require.Equal(t, "Competent", DisplayGrade(context.Background(), courses, assignment, 2.2))
	require.Equal(t, "-", DisplayGrade(context.Background(), courses, assignment, 4), "past the last item")
}

func TestDisplayGradeMissingScale(t *testing.T) {
	courses := &fakeCourseRepo{scales: map[uint]models.Scale{}}
	assignment := models.Assignment{Grade: -9}

	require.Equal(t, "-", DisplayGrade(context.Background(), courses, assignment, 1))
}
