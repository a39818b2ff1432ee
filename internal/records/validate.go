package records

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/student-records/internal/types"
)

// Bounds enforced on the business fields.
const (
	NameMinLen     = 2
	NameMaxLen     = 50
	DivisionMaxLen = 10
	AgeMin         = 5
	AgeMax         = 100
)

// candidate is the typed view of an Input that the validator checks.
// Age is nil when it was blank or did not parse.
type candidate struct {
	Name       string `json:"name" validate:"required,min=2,max=50"`
	RollNumber string `json:"rollNumber" validate:"required"`
	Course     string `json:"course" validate:"required"`
	Age        *int   `json:"age" validate:"required,min=5,max=100"`
	Standard   string `json:"standard" validate:"required"`
	Division   string `json:"division" validate:"required,max=10"`
}

var labels = map[string]string{
	FieldName:       "Name",
	FieldRollNumber: "Roll Number",
	FieldCourse:     "Course",
	FieldAge:        "Age",
	FieldStandard:   "Standard",
	FieldDivision:   "Division",
}

// validate is safe for concurrent use and caches struct metadata,
// so one instance serves every request.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON names ("rollNumber") instead of Go names ("RollNumber").
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every field of in independently and returns all
// violations in canonical field order. Text is measured after trimming.
// A nil result means in is valid.
func Validate(in Input) []types.FieldError {
	in = Normalize(in)

	c := candidate{
		Name:       in.Name,
		RollNumber: in.RollNumber,
		Course:     in.Course,
		Standard:   in.Standard,
		Division:   in.Division,
	}
	ageUnparseable := false
	if in.Age != "" {
		if n, err := in.Age.Int(); err == nil {
			c.Age = &n
		} else {
			ageUnparseable = true
		}
	}

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// Only returned for non-struct input, which cannot happen here.
		return []types.FieldError{{Message: err.Error()}}
	}

	violations := make([]types.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		msg := message(fe)
		if fe.Field() == FieldAge && fe.Tag() == "required" && ageUnparseable {
			msg = "Age must be a whole number"
		}
		violations = append(violations, types.FieldError{Field: fe.Field(), Message: msg})
	}
	return violations
}

// message turns one validator failure into the sentence shown to clients.
func message(fe validator.FieldError) string {
	label, ok := labels[fe.Field()]
	if !ok {
		label = fe.Field()
	}

	text := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "min":
		if text {
			return fmt.Sprintf("%s must be at least %s characters long", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	case "max":
		if text {
			return fmt.Sprintf("%s cannot exceed %s characters", label, fe.Param())
		}
		return fmt.Sprintf("%s cannot exceed %s", label, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}
