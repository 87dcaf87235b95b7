package curriculum

import "fmt"

// ActivityType classifies an activity within a module.
type ActivityType string

const (
	TypeQuiz        ActivityType = "quiz"
	TypeVideo       ActivityType = "video"
	TypePDF         ActivityType = "pdf"
	TypeInteractive ActivityType = "interactive"
	TypeDiscussion  ActivityType = "discussion"
)

// Types lists every known activity type in a fixed order.
var Types = []ActivityType{TypeQuiz, TypeVideo, TypePDF, TypeInteractive, TypeDiscussion}

// Valid reports whether t is one of the known activity types.
func (t ActivityType) Valid() bool {
	switch t {
	case TypeQuiz, TypeVideo, TypePDF, TypeInteractive, TypeDiscussion:
		return true
	}
	return false
}

// Activity is a single unit of instructional work.
type Activity struct {
	ID              string       `yaml:"id" json:"id"`
	Type            ActivityType `yaml:"type" json:"type"`
	Title           string       `yaml:"title" json:"title"`
	DurationMinutes int          `yaml:"duration_minutes" json:"duration_minutes"`
}

// Module is an ordered group of activities within a curriculum.
type Module struct {
	Title      string     `yaml:"title" json:"title"`
	Activities []Activity `yaml:"activities" json:"activities"`
}

// Curriculum is the static instructional plan for one (class, subject) pair.
// It is immutable once loaded.
type Curriculum struct {
	Class   string   `yaml:"class" json:"class"`
	Subject string   `yaml:"subject" json:"subject"`
	Modules []Module `yaml:"modules" json:"modules"`
}

// Key returns the catalog key for a (class, subject) pair.
func Key(class, subject string) string {
	return class + "/" + subject
}

// TotalActivities returns the number of activities across all modules.
func (c Curriculum) TotalActivities() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Activities)
	}
	return n
}

// Validate checks structural invariants: class and subject present, every
// activity carries a known type, and activity IDs are unique across the whole
// curriculum, not just within a module.
func (c Curriculum) Validate() error {
	if c.Class == "" || c.Subject == "" {
		return fmt.Errorf("curriculum missing class or subject")
	}

	seen := make(map[string]string)
	for _, m := range c.Modules {
		if m.Title == "" {
			return fmt.Errorf("curriculum %s: module with empty title", Key(c.Class, c.Subject))
		}
		for _, a := range m.Activities {
			if a.ID == "" {
				return fmt.Errorf("curriculum %s: activity with empty id in module %q", Key(c.Class, c.Subject), m.Title)
			}
			if !a.Type.Valid() {
				return fmt.Errorf("curriculum %s: activity %s has unknown type %q", Key(c.Class, c.Subject), a.ID, a.Type)
			}
			if prev, dup := seen[a.ID]; dup {
				return fmt.Errorf("curriculum %s: duplicate activity id %s (modules %q and %q)", Key(c.Class, c.Subject), a.ID, prev, m.Title)
			}
			seen[a.ID] = m.Title
		}
	}
	return nil
}
