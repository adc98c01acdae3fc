package schema

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// initiatedByPattern matches the composed audit actor column,
// "principal (ip-address)".
var initiatedByPattern = regexp.MustCompile(`^[^\s()]+ \([0-9a-fA-F.:]+\)$`)

// Validator checks generated rows against the output schema before
// anything is written. A run that produces an invalid row aborts rather
// than shipping a malformed fixture.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator for the three stream shapes.
func NewValidator() *Validator {
	v := validator.New()

	v.RegisterValidation("initiated_by", func(fl validator.FieldLevel) bool {
		return initiatedByPattern.MatchString(fl.Field().String())
	})

	return &Validator{validate: v}
}

// ValidateAudit validates every row of an audit stream.
func (v *Validator) ValidateAudit(events []AuditEvent) error {
	for i := range events {
		if err := v.validate.Struct(&events[i]); err != nil {
			return fmt.Errorf("audit row %d: %w", i, err)
		}
	}
	return nil
}

// ValidateActivity validates every row of an office-activity stream.
func (v *Validator) ValidateActivity(events []OfficeActivityEvent) error {
	for i := range events {
		if err := v.validate.Struct(&events[i]); err != nil {
			return fmt.Errorf("office-activity row %d: %w", i, err)
		}
	}
	return nil
}

// ValidateSignIns validates every row of a sign-in stream.
func (v *Validator) ValidateSignIns(events []SignInEvent) error {
	for i := range events {
		if err := v.validate.Struct(&events[i]); err != nil {
			return fmt.Errorf("sign-in row %d: %w", i, err)
		}
	}
	return nil
}
