// internal/tour/validator_test.go
package tour

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/tourguard-cli/api/schemas"
)

func validDefinition() *schemas.TourDefinition {
	return &schemas.TourDefinition{
		ID:          "onboarding-basics",
		Name:        "Onboarding Basics",
		Description: "Walks a new user through the dashboard.",
		Category:    schemas.CategoryOnboarding,
		Steps: []schemas.TourStep{
			{
				Element:     "#dashboard-nav",
				Title:       "Your dashboard",
				Description: "Everything starts here.",
				Position:    schemas.PositionBottom,
			},
		},
		Triggers: []schemas.TourTrigger{
			{Type: schemas.TriggerManual},
		},
		Metadata: schemas.TourMetadata{
			Version:             "1.0.0",
			Author:              "growth-team",
			LastUpdated:         "2026-05-01T12:00:00Z",
			EstimatedDurationMs: 60000,
		},
	}
}

func TestValidateAcceptsWellFormedDefinition(t *testing.T) {
	def := validDefinition()
	out, err := Validate(def)
	require.NoError(t, err)
	assert.Same(t, def, out, "validation must return the definition unchanged")
}

func TestValidateIsIdempotent(t *testing.T) {
	def := validDefinition()
	_, err := Validate(def)
	require.NoError(t, err)
	_, err = Validate(def)
	require.NoError(t, err)
}

func TestValidateRejectsNil(t *testing.T) {
	_, err := Validate(nil)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, CodeMissingField, ve.Code)
}

func TestValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*schemas.TourDefinition)
		wantCode string
	}{
		{"missing id", func(d *schemas.TourDefinition) { d.ID = "" }, CodeMissingField},
		{"id with spaces", func(d *schemas.TourDefinition) { d.ID = "bad id" }, CodeInvalidID},
		{"id with underscore", func(d *schemas.TourDefinition) { d.ID = "bad_id" }, CodeInvalidID},
		{"missing name", func(d *schemas.TourDefinition) { d.Name = "" }, CodeMissingField},
		{"missing description", func(d *schemas.TourDefinition) { d.Description = "" }, CodeMissingField},
		{"unknown category", func(d *schemas.TourDefinition) { d.Category = "sales" }, CodeInvalidEnum},
		{"no steps", func(d *schemas.TourDefinition) { d.Steps = nil }, CodeEmptySteps},
		{"no triggers", func(d *schemas.TourDefinition) { d.Triggers = nil }, CodeEmptyTriggers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDefinition()
			tt.mutate(def)
			_, err := Validate(def)
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantCode, ve.Code)
		})
	}
}

func TestValidateStepRules(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*schemas.TourStep)
		wantCode string
	}{
		{"empty selector", func(s *schemas.TourStep) { s.Element = "  " }, CodeInvalidStep},
		{"script selector", func(s *schemas.TourStep) { s.Element = "<script>alert(1)</script>" }, CodeUnsafeSelector},
		{"braces in selector", func(s *schemas.TourStep) { s.Element = "div{color:red}" }, CodeUnsafeSelector},
		{"empty title", func(s *schemas.TourStep) { s.Title = "" }, CodeInvalidStep},
		{"empty description", func(s *schemas.TourStep) { s.Description = "" }, CodeInvalidStep},
		{"bad position", func(s *schemas.TourStep) { s.Position = "above" }, CodeInvalidStep},
		{
			"empty accessibility block",
			func(s *schemas.TourStep) { s.Accessibility = &schemas.StepAccessibility{} },
			CodeInvalidStep,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDefinition()
			tt.mutate(&def.Steps[0])
			_, err := Validate(def)
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantCode, ve.Code)
		})
	}
}

func TestValidateStepAllowsComplexSafeSelectors(t *testing.T) {
	def := validDefinition()
	def.Steps[0].Element = `nav > ul li.item[data-role="primary"]:nth-child(2)`
	_, err := Validate(def)
	assert.NoError(t, err)
}

func TestValidateTriggerRules(t *testing.T) {
	delay := int64(-5)
	okDelay := int64(1000)
	lowPriority := 0
	highPriority := 11

	tests := []struct {
		name    string
		trigger schemas.TourTrigger
		wantErr bool
	}{
		{"manual ok", schemas.TourTrigger{Type: schemas.TriggerManual}, false},
		{"unknown type", schemas.TourTrigger{Type: "hover"}, true},
		{"conditional without condition", schemas.TourTrigger{Type: schemas.TriggerConditional}, true},
		{
			"conditional with condition",
			schemas.TourTrigger{
				Type: schemas.TriggerConditional,
				Condition: &schemas.TourCondition{
					Type:     schemas.ConditionPagePath,
					Operator: schemas.OperatorContains,
					Value:    "/dashboard",
				},
			},
			false,
		},
		{"scheduled without delay", schemas.TourTrigger{Type: schemas.TriggerScheduled}, true},
		{"scheduled with delay", schemas.TourTrigger{Type: schemas.TriggerScheduled, DelayMs: &okDelay}, false},
		{"negative delay", schemas.TourTrigger{Type: schemas.TriggerScheduled, DelayMs: &delay}, true},
		{"priority too low", schemas.TourTrigger{Type: schemas.TriggerManual, Priority: &lowPriority}, true},
		{"priority too high", schemas.TourTrigger{Type: schemas.TriggerManual, Priority: &highPriority}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDefinition()
			def.Triggers = []schemas.TourTrigger{tt.trigger}
			_, err := Validate(def)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateConditionValueRequirements(t *testing.T) {
	def := validDefinition()

	// user_role demands a value; page_path does not.
	def.Conditions = []schemas.TourCondition{
		{Type: schemas.ConditionUserRole, Operator: schemas.OperatorEquals},
	}
	_, err := Validate(def)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, CodeInvalidCondition, ve.Code)

	def.Conditions = []schemas.TourCondition{
		{Type: schemas.ConditionPagePath, Operator: schemas.OperatorExists},
	}
	_, err = Validate(def)
	assert.NoError(t, err)
}

func TestValidateMetadataRules(t *testing.T) {
	def := validDefinition()
	def.Metadata.EstimatedDurationMs = 0
	_, err := Validate(def)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, CodeInvalidMetadata, ve.Code)
}

func TestValidateManyRejectsDuplicateIDs(t *testing.T) {
	a := validDefinition()
	b := validDefinition()
	b.Name = "Second tour"

	_, err := ValidateMany([]*schemas.TourDefinition{a, b})
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, CodeDuplicateID, ve.Code)
	assert.Equal(t, a.ID, ve.TourID)
}

func TestValidateManyStopsAtFirstFailure(t *testing.T) {
	a := validDefinition()
	broken := validDefinition()
	broken.ID = "broken-tour"
	broken.Steps = nil

	_, err := ValidateMany([]*schemas.TourDefinition{a, broken})
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, CodeEmptySteps, ve.Code)
	assert.Equal(t, "broken-tour", ve.TourID)
}
