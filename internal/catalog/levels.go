package catalog

import "github.com/ndarama/ishuriai-backend/internal/domain"

// levelOptions maps each registrant role to the level choices offered for it.
var levelOptions = map[domain.UserType][]string{
	domain.UserTypeStudent: {
		"Pre-Primary", "Primary 1", "Primary 2", "Primary 3", "Primary 4", "Primary 5", "Primary 6",
		"S1", "S2", "S3", "S4", "S5", "S6", "University Year 1", "University Year 2",
		"University Year 3", "University Year 4", "Masters", "PhD",
	},
	domain.UserTypeTeacher: {
		"Pre-Primary Teacher", "Primary Teacher", "Secondary Teacher",
		"University Lecturer", "Private Tutor", "Administrator",
	},
	domain.UserTypeParent: {
		"Parent of Pre-Primary", "Parent of Primary", "Parent of Secondary",
		"Parent of University Student", "Guardian",
	},
}

// LevelOptions returns the level choices for a role. An invalid role returns
// an empty list.
func LevelOptions(userType domain.UserType) []string {
	opts, ok := levelOptions[userType]
	if !ok {
		return nil
	}
	out := make([]string, len(opts))
	copy(out, opts)
	return out
}

// ValidLevel reports whether level is one of the choices offered for the
// given role.
func ValidLevel(userType domain.UserType, level string) bool {
	for _, opt := range levelOptions[userType] {
		if opt == level {
			return true
		}
	}
	return false
}
