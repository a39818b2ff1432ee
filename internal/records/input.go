// Package records turns a client-supplied student payload into a stored
// record shape. It owns three steps every write goes through:
//
//	Missing   → which of the six business fields were not sent at all
//	Normalize → trim text, upper-case the roll number, canonicalize age
//	Validate  → per-field constraints, all violations collected
//
// Nothing here touches storage; uniqueness is checked by the handlers.
package records

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/aanand-mishra/student-records/internal/types"
)

// Field names as they appear on the wire, in canonical order.
const (
	FieldName       = "name"
	FieldRollNumber = "rollNumber"
	FieldCourse     = "course"
	FieldAge        = "age"
	FieldStandard   = "standard"
	FieldDivision   = "division"
)

// Fields lists every business field in canonical order.
var Fields = []string{FieldName, FieldRollNumber, FieldCourse, FieldAge, FieldStandard, FieldDivision}

// Input is the request body for create and update.
//
// Request body (JSON):
//
//	{ "name": "Ann Lee", "rollNumber": "a1", "course": "Math",
//	  "age": 20, "standard": "10", "division": "A" }
type Input struct {
	Name       string `json:"name"`
	RollNumber string `json:"rollNumber"`
	Course     string `json:"course"`
	Age        Age    `json:"age"`
	Standard   string `json:"standard"`
	Division   string `json:"division"`
}

// Age holds the age exactly as the client sent it. Both JSON numbers and
// numeric strings are accepted; anything else is kept verbatim so that
// validation can report it instead of the decoder.
type Age string

// UnmarshalJSON implements json.Unmarshaler.
func (a *Age) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*a = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Age(s)
	default:
		*a = Age(b)
	}
	return nil
}

// jsonNumber matches a JSON number literal, split into integer, fraction
// and exponent digits.
var jsonNumber = regexp.MustCompile(`^(-?)(\d+)(?:\.(\d+))?(?:[eE]([+-]?\d+))?$`)

// Int parses the age as a base-10 integer. A number written with a
// fraction or exponent is accepted when its value is whole, so 1e1 and
// 20.0 are 10 and 20 while 20.5 is an error.
func (a Age) Int() (int, error) {
	s := strings.TrimSpace(string(a))
	n, err := strconv.Atoi(s)
	if err == nil {
		return n, nil
	}
	if n, ok := wholeNumber(s); ok {
		return n, nil
	}
	return 0, err
}

// wholeNumber evaluates a JSON number literal exactly, without going
// through float64. Values that are not integers or exceed nine digits are
// rejected.
func wholeNumber(s string) (int, bool) {
	m := jsonNumber.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	exp := 0
	if m[4] != "" {
		e, err := strconv.Atoi(m[4])
		if err != nil {
			return 0, false
		}
		exp = e
	}
	digits := m[2] + m[3]
	exp -= len(m[3])

	trimmed := strings.TrimRight(digits, "0")
	exp += len(digits) - len(trimmed)
	trimmed = strings.TrimLeft(trimmed, "0")
	if trimmed == "" {
		return 0, true
	}
	if exp < 0 || exp > 9 || len(trimmed)+exp > 9 {
		return 0, false
	}

	n, err := strconv.Atoi(m[1] + trimmed + strings.Repeat("0", exp))
	return n, err == nil
}

// Missing returns the names of business fields that are absent or blank,
// in canonical order. A nil result means every field was supplied.
func Missing(in Input) []string {
	var missing []string
	values := in.values()
	for _, field := range Fields {
		if strings.TrimSpace(values[field]) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

func (in Input) values() map[string]string {
	return map[string]string{
		FieldName:       in.Name,
		FieldRollNumber: in.RollNumber,
		FieldCourse:     in.Course,
		FieldAge:        string(in.Age),
		FieldStandard:   in.Standard,
		FieldDivision:   in.Division,
	}
}

// Build normalizes and validates in, returning the record to store.
// The returned Student has no ID or timestamps; storage assigns those.
func Build(in Input) (types.Student, []types.FieldError) {
	in = Normalize(in)
	if violations := Validate(in); len(violations) > 0 {
		return types.Student{}, violations
	}

	age, _ := in.Age.Int()
	return types.Student{
		Name:       in.Name,
		RollNumber: in.RollNumber,
		Course:     in.Course,
		Age:        age,
		Standard:   in.Standard,
		Division:   in.Division,
	}, nil
}
