package digest

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/studyping/studyping/internal/domain"
)

// NoAssignmentsMessage is the complete digest produced for an empty
// assignment set. It is still a deliverable message on its own.
const NoAssignmentsMessage = "You have no upcoming assignments due in the next few days!"

// dueLayout renders due dates as "Monday, Mar 3, 11:59 PM". The exact shape
// matters: it is what the language model sees, so it is what generated
// reminders reference.
const dueLayout = "Monday, Jan 2, 3:04 PM"

// Locale-fixed number formatting for point values.
var printer = message.NewPrinter(language.AmericanEnglish)

// Format renders assignments into the bullet-list digest sent to the
// text-generation API. One line per assignment: name, course, optional
// points, due date.
func Format(assignments []domain.Assignment) string {
	if len(assignments) == 0 {
		return NoAssignmentsMessage
	}

	var b strings.Builder
	for i, a := range assignments {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(a.Name)
		if a.CourseName != "" {
			b.WriteString(" (")
			b.WriteString(a.CourseName)
			b.WriteByte(')')
		}
		if a.PointsPossible != nil {
			b.WriteString(printer.Sprintf(" (%v points)", number.Decimal(*a.PointsPossible)))
		}
		if a.DueAt != nil {
			b.WriteString(", due ")
			b.WriteString(a.DueAt.Format(dueLayout))
		}
	}
	return b.String()
}
