package registration

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Messages returned for rejected input. They are part of the public API.
const (
	MsgFieldsRequired       = "All fields are required."
	MsgAdmissionFormat      = "Admission number must be in the format AA123."
	admissionTag            = "admission"
	admissionPatternLiteral = `^[A-Z]{2}[0-9]{3}$`
)

// admissionPattern: exactly two upper-case Latin letters, then exactly
// three decimal digits, nothing around them.
var admissionPattern = regexp.MustCompile(admissionPatternLiteral)

// Submission is what the public client sends.
type Submission struct {
	Name            string `json:"name"             validate:"required"`
	Phone           string `json:"phone"            validate:"required"`
	AdmissionNumber string `json:"admission_number" validate:"required,admission"`
}

// Validator checks submissions. It is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds a Validator with the admission tag registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails on programmer error (bad tag name).
	if err := v.RegisterValidation(admissionTag, func(fl validator.FieldLevel) bool {
		return admissionPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return &Validator{v: v}
}

// Validate returns the submission with its admission number upper-cased,
// or an *InvalidInputError. Missing fields are reported before format.
func (val *Validator) Validate(sub Submission) (Submission, error) {
	sub.AdmissionNumber = strings.ToUpper(sub.AdmissionNumber)

	err := val.v.Struct(sub)
	if err == nil {
		return sub, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Submission{}, &InvalidInputError{Reason: MsgFieldsRequired}
	}

	reason := MsgAdmissionFormat
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			reason = MsgFieldsRequired
			break
		}
	}
	return Submission{}, &InvalidInputError{Reason: reason}
}
