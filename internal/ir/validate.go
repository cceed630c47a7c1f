package ir

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var snapshotValidate *validator.Validate

func init() {
	snapshotValidate = validator.New()

	// Registration only fails for malformed tags, which is a programming error.
	_ = snapshotValidate.RegisterValidation("message_type", validateMessageType)
	snapshotValidate.RegisterStructValidation(validateSnapshotStruct, Snapshot{})
}

func validateMessageType(fl validator.FieldLevel) bool {
	for _, mt := range MessageTypes {
		if string(mt) == fl.Field().String() {
			return true
		}
	}
	return false
}

// validateSnapshotStruct checks the cross-field rules:
//   - control rules must name a known controller
//   - a continuous rule needs a threshold (stepped rules carry Step instead)
func validateSnapshotStruct(sl validator.StructLevel) {
	s := sl.Current().Interface().(Snapshot)

	if s.MessageType == MessageControl {
		if _, ok := LookupControl(s.ControlType); !ok {
			sl.ReportError(s.ControlType, "ControlType", "control_type", "control_name", "")
		}
	}
	if s.Step == nil && s.Threshold == nil {
		sl.ReportError(s.Threshold, "Threshold", "threshold", "required_without", "Step")
	}
}

// Validate reports every missing or malformed field of the snapshot.
func (s Snapshot) Validate() error {
	if err := snapshotValidate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid rule: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid rule: %w", err)
	}
	return nil
}

// Valid reports whether every required field is present and parseable.
// Invalid snapshots are skipped by the resolver and never form keys.
func (s Snapshot) Valid() bool {
	return s.Validate() == nil
}
