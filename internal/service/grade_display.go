package service

import (
	"context"
	"fmt"
	"math"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/repository"
)

// DisplayGrade renders a stored grade value according to the assignment's
// grading descriptor: points as "x / max", scale values as the scale item
// text, ungraded as "-". Assignments without grading render empty.
func DisplayGrade(ctx context.Context, courses repository.CourseRepository, assignment models.Assignment, value float64) string {
	if !assignment.IsGraded() {
		return ""
	}
	if value < 0 {
		return "-"
	}

	if assignment.UsesScale() {
		scale, err := courses.GetScale(ctx, assignment.ScaleID())
		if err != nil {
			return "-"
		}
		item, ok := scale.ItemAt(int(math.Round(value)))
		if !ok {
			return "-"
		}
		return item
	}

	return fmt.Sprintf("%.2f / %d", value, assignment.Grade)
}
