// internal/tour/validator.go
package tour

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xkilldash9x/tourguard-cli/api/schemas"
)

// ValidationError reports the first rule a definition failed. Validation is
// fail-fast: nothing is partially applied.
type ValidationError struct {
	Message string `json:"message"`
	TourID  string `json:"tourId,omitempty"`
	Code    string `json:"code,omitempty"`
}

func (e *ValidationError) Error() string {
	if e.TourID != "" {
		return fmt.Sprintf("tour %q: %s", e.TourID, e.Message)
	}
	return e.Message
}

// Error codes surfaced to authors. The code names the failing rule, not the
// failing value.
const (
	CodeMissingField     = "missing_field"
	CodeInvalidID        = "invalid_id"
	CodeInvalidEnum      = "invalid_enum"
	CodeEmptySteps       = "empty_steps"
	CodeEmptyTriggers    = "empty_triggers"
	CodeInvalidStep      = "invalid_step"
	CodeInvalidTrigger   = "invalid_trigger"
	CodeInvalidCondition = "invalid_condition"
	CodeInvalidMetadata  = "invalid_metadata"
	CodeDuplicateID      = "duplicate_id"
	CodeUnsafeSelector   = "unsafe_selector"
)

var (
	idPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	// selectorPattern restricts step selectors to a safe character set. Markup
	// characters (`<`, braces, semicolons, backslashes) never appear in the
	// selectors tours are authored with and are the vehicle for injection.
	selectorPattern = regexp.MustCompile(`^[A-Za-z0-9\s\-_#.\[\]=:()>+~*,"']+$`)
)

func fail(tourID, code, format string, args ...any) *ValidationError {
	return &ValidationError{
		Message: fmt.Sprintf(format, args...),
		TourID:  tourID,
		Code:    code,
	}
}

// Validate checks a tour definition structurally and returns it unchanged on
// success. It is pure: no DOM access, no mutation, idempotent on valid input.
func Validate(def *schemas.TourDefinition) (*schemas.TourDefinition, error) {
	if def == nil {
		return nil, fail("", CodeMissingField, "tour definition is required")
	}
	if def.ID == "" {
		return nil, fail("", CodeMissingField, "field \"id\" is required")
	}
	if !idPattern.MatchString(def.ID) {
		return nil, fail(def.ID, CodeInvalidID, "field \"id\" must match [A-Za-z0-9-]+")
	}
	if def.Name == "" {
		return nil, fail(def.ID, CodeMissingField, "field \"name\" is required")
	}
	if def.Description == "" {
		return nil, fail(def.ID, CodeMissingField, "field \"description\" is required")
	}
	if !def.Category.IsValid() {
		return nil, fail(def.ID, CodeInvalidEnum, "field \"category\" has unknown value %q", def.Category)
	}

	if len(def.Steps) == 0 {
		return nil, fail(def.ID, CodeEmptySteps, "field \"steps\" must contain at least one step")
	}
	for i := range def.Steps {
		if err := validateStep(def.ID, i, &def.Steps[i]); err != nil {
			return nil, err
		}
	}

	if len(def.Triggers) == 0 {
		return nil, fail(def.ID, CodeEmptyTriggers, "field \"triggers\" must contain at least one trigger")
	}
	for i := range def.Triggers {
		if err := validateTrigger(def.ID, i, &def.Triggers[i]); err != nil {
			return nil, err
		}
	}

	for i := range def.Conditions {
		if err := validateCondition(def.ID, i, &def.Conditions[i]); err != nil {
			return nil, err
		}
	}

	if err := validateMetadata(def.ID, &def.Metadata); err != nil {
		return nil, err
	}

	return def, nil
}

func validateStep(tourID string, index int, step *schemas.TourStep) error {
	if strings.TrimSpace(step.Element) == "" {
		return fail(tourID, CodeInvalidStep, "step %d: field \"element\" is required", index)
	}
	if !selectorPattern.MatchString(step.Element) {
		return fail(tourID, CodeUnsafeSelector,
			"step %d: selector %q contains characters outside the safe set", index, step.Element)
	}
	if strings.TrimSpace(step.Title) == "" {
		return fail(tourID, CodeInvalidStep, "step %d: field \"title\" is required", index)
	}
	if strings.TrimSpace(step.Description) == "" {
		return fail(tourID, CodeInvalidStep, "step %d: field \"description\" is required", index)
	}
	if step.Position != "" && !step.Position.IsValid() {
		return fail(tourID, CodeInvalidStep,
			"step %d: field \"position\" has unknown value %q", index, step.Position)
	}
	if acc := step.Accessibility; acc != nil {
		if acc.AriaLabel == "" && acc.AriaDescription == "" {
			return fail(tourID, CodeInvalidStep,
				"step %d: field \"accessibility\" must set ariaLabel or ariaDescription when present", index)
		}
	}
	return nil
}

func validateTrigger(tourID string, index int, trigger *schemas.TourTrigger) error {
	if !trigger.Type.IsValid() {
		return fail(tourID, CodeInvalidTrigger,
			"trigger %d: field \"type\" has unknown value %q", index, trigger.Type)
	}
	if trigger.Type == schemas.TriggerConditional && trigger.Condition == nil {
		return fail(tourID, CodeInvalidTrigger,
			"trigger %d: conditional triggers require a \"condition\"", index)
	}
	if trigger.Type == schemas.TriggerScheduled {
		if trigger.DelayMs == nil {
			return fail(tourID, CodeInvalidTrigger,
				"trigger %d: scheduled triggers require a \"delay\"", index)
		}
	}
	if trigger.DelayMs != nil && *trigger.DelayMs < 0 {
		return fail(tourID, CodeInvalidTrigger,
			"trigger %d: field \"delay\" must be non-negative, got %d", index, *trigger.DelayMs)
	}
	if trigger.Priority != nil && (*trigger.Priority < 1 || *trigger.Priority > 10) {
		return fail(tourID, CodeInvalidTrigger,
			"trigger %d: field \"priority\" must be within [1,10], got %d", index, *trigger.Priority)
	}
	if trigger.Condition != nil {
		if err := validateCondition(tourID, index, trigger.Condition); err != nil {
			return err
		}
	}
	return nil
}

func validateCondition(tourID string, index int, cond *schemas.TourCondition) error {
	if !cond.Type.IsValid() {
		return fail(tourID, CodeInvalidCondition,
			"condition %d: field \"type\" has unknown value %q", index, cond.Type)
	}
	if !cond.Operator.IsValid() {
		return fail(tourID, CodeInvalidCondition,
			"condition %d: field \"operator\" has unknown value %q", index, cond.Operator)
	}
	if cond.Type.RequiresValue() && cond.Value == nil {
		return fail(tourID, CodeInvalidCondition,
			"condition %d: type %q requires a non-null \"value\"", index, cond.Type)
	}
	return nil
}

func validateMetadata(tourID string, meta *schemas.TourMetadata) error {
	if meta.Version == "" {
		return fail(tourID, CodeInvalidMetadata, "metadata: field \"version\" is required")
	}
	if meta.Author == "" {
		return fail(tourID, CodeInvalidMetadata, "metadata: field \"author\" is required")
	}
	if meta.LastUpdated == "" {
		return fail(tourID, CodeInvalidMetadata, "metadata: field \"lastUpdated\" is required")
	}
	if meta.EstimatedDurationMs <= 0 {
		return fail(tourID, CodeInvalidMetadata,
			"metadata: field \"estimatedDuration\" must be positive, got %v", meta.EstimatedDurationMs)
	}
	return nil
}

// ValidateMany validates a batch and additionally rejects duplicate IDs across
// it. The first failure stops the batch.
func ValidateMany(defs []*schemas.TourDefinition) ([]*schemas.TourDefinition, error) {
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		if _, err := Validate(def); err != nil {
			return nil, err
		}
		if seen[def.ID] {
			return nil, fail(def.ID, CodeDuplicateID, "duplicate tour id %q in batch", def.ID)
		}
		seen[def.ID] = true
	}
	return defs, nil
}
