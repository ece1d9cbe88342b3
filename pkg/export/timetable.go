package export

import (
	"github.com/acadops/timetable-api/internal/models"
)

var timetableHeaders = []string{"Day", "Start", "End", "Group", "Course", "Teacher", "Room"}

// TimetableDataset flattens assignment details into the export table shape.
// Rows keep the repository order: weekday, start time, group.
func TimetableDataset(details []models.AssignmentDetail) Dataset {
	rows := make([]map[string]string, 0, len(details))
	for i := range details {
		d := &details[i]
		rows = append(rows, map[string]string{
			"Day":     d.DayOfWeek,
			"Start":   d.StartTime,
			"End":     d.EndTime,
			"Group":   d.GroupName,
			"Course":  d.CourseCode + " " + d.CourseName,
			"Teacher": d.TeacherName,
			"Room":    d.RoomNumber,
		})
	}
	return Dataset{Headers: timetableHeaders, Rows: rows}
}
