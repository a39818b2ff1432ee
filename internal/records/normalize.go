package records

import (
	"strconv"
	"strings"
)

// Normalize returns the canonical form of in: every text field trimmed,
// the roll number upper-cased, and a parseable age rewritten in plain
// decimal ("+07" and "7e0" become "7"). Normalizing twice is the same as once.
func Normalize(in Input) Input {
	out := Input{
		Name:       strings.TrimSpace(in.Name),
		RollNumber: NormalizeRollNumber(in.RollNumber),
		Course:     strings.TrimSpace(in.Course),
		Age:        Age(strings.TrimSpace(string(in.Age))),
		Standard:   strings.TrimSpace(in.Standard),
		Division:   strings.TrimSpace(in.Division),
	}
	if n, err := out.Age.Int(); err == nil {
		out.Age = Age(strconv.Itoa(n))
	}
	return out
}

// NormalizeRollNumber is the stored form of a roll number. Lookups by
// roll number must go through it so comparisons are case-insensitive.
func NormalizeRollNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
