// api/schemas/tours.go
package schemas

// -- Tour Definition Schemas --

// TourCategory classifies what a tour is for.
type TourCategory string

const (
	CategoryOnboarding TourCategory = "onboarding"
	CategoryFeature    TourCategory = "feature"
	CategoryContextual TourCategory = "contextual"
	CategoryHelp       TourCategory = "help"
)

// IsValid reports whether the category is a known value.
func (c TourCategory) IsValid() bool {
	switch c {
	case CategoryOnboarding, CategoryFeature, CategoryContextual, CategoryHelp:
		return true
	}
	return false
}

// StepPosition controls where the popover is anchored relative to the target.
type StepPosition string

const (
	PositionTop    StepPosition = "top"
	PositionBottom StepPosition = "bottom"
	PositionLeft   StepPosition = "left"
	PositionRight  StepPosition = "right"
	PositionAuto   StepPosition = "auto"
)

// IsValid reports whether the position is a known value.
func (p StepPosition) IsValid() bool {
	switch p {
	case PositionTop, PositionBottom, PositionLeft, PositionRight, PositionAuto:
		return true
	}
	return false
}

// TriggerType describes how a tour is started.
type TriggerType string

const (
	TriggerManual      TriggerType = "manual"
	TriggerAuto        TriggerType = "auto"
	TriggerConditional TriggerType = "conditional"
	TriggerScheduled   TriggerType = "scheduled"
)

// IsValid reports whether the trigger type is a known value.
func (t TriggerType) IsValid() bool {
	switch t {
	case TriggerManual, TriggerAuto, TriggerConditional, TriggerScheduled:
		return true
	}
	return false
}

// ConditionType describes what a condition inspects.
type ConditionType string

const (
	ConditionUserRole       ConditionType = "user_role"
	ConditionClientSelected ConditionType = "client_selected"
	ConditionPagePath       ConditionType = "page_path"
	ConditionFeatureFlag    ConditionType = "feature_flag"
	ConditionUserProperty   ConditionType = "user_property"
)

// IsValid reports whether the condition type is a known value.
func (c ConditionType) IsValid() bool {
	switch c {
	case ConditionUserRole, ConditionClientSelected, ConditionPagePath,
		ConditionFeatureFlag, ConditionUserProperty:
		return true
	}
	return false
}

// RequiresValue reports whether the condition type demands a non-nil value.
// `exists` style checks on flags and paths can get by on presence alone.
func (c ConditionType) RequiresValue() bool {
	switch c {
	case ConditionUserRole, ConditionClientSelected, ConditionUserProperty:
		return true
	}
	return false
}

// ConditionOperator is the comparison applied to a condition value.
type ConditionOperator string

const (
	OperatorEquals    ConditionOperator = "equals"
	OperatorContains  ConditionOperator = "contains"
	OperatorNotEquals ConditionOperator = "not_equals"
	OperatorExists    ConditionOperator = "exists"
)

// IsValid reports whether the operator is a known value.
func (o ConditionOperator) IsValid() bool {
	switch o {
	case OperatorEquals, OperatorContains, OperatorNotEquals, OperatorExists:
		return true
	}
	return false
}

// StepAccessibility carries the ARIA metadata applied when a step is shown.
type StepAccessibility struct {
	AriaLabel       string `json:"ariaLabel,omitempty"`
	AriaDescription string `json:"ariaDescription,omitempty"`
}

// TourStep is one highlighted element plus its explanatory copy. Steps are
// immutable value objects once validated.
type TourStep struct {
	// Element is the CSS selector locating the highlight target.
	Element       string             `json:"element"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	Position      StepPosition       `json:"position,omitempty"`
	Accessibility *StepAccessibility `json:"accessibility,omitempty"`
	// NavigateTo, when set, is a pre-highlight navigation hook reference.
	NavigateTo string `json:"navigateTo,omitempty"`
	// CustomComponent marks steps rendered by a host-supplied component.
	CustomComponent string `json:"customComponent,omitempty"`
}

// TourCondition gates whether a tour is shown at all.
type TourCondition struct {
	Type     ConditionType     `json:"type"`
	Operator ConditionOperator `json:"operator"`
	Value    any               `json:"value,omitempty"`
}

// TourTrigger describes one way a tour can start.
type TourTrigger struct {
	Type      TriggerType    `json:"type"`
	Condition *TourCondition `json:"condition,omitempty"`
	// DelayMs is required context for scheduled triggers. Milliseconds.
	DelayMs *int64 `json:"delay,omitempty"`
	// Priority orders competing triggers, 1-10.
	Priority *int `json:"priority,omitempty"`
}

// TourMetadata is authoring provenance for a tour.
type TourMetadata struct {
	Version string `json:"version"`
	Author  string `json:"author"`
	// LastUpdated is an ISO-8601 timestamp string as authored upstream.
	LastUpdated string `json:"lastUpdated"`
	// EstimatedDurationMs is the expected walkthrough time in milliseconds.
	EstimatedDurationMs float64 `json:"estimatedDuration"`
}

// TourDefinition is the unit of authored tour content. Step order is
// meaningful and preserved end to end.
type TourDefinition struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    TourCategory    `json:"category"`
	Steps       []TourStep      `json:"steps"`
	Triggers    []TourTrigger   `json:"triggers"`
	Conditions  []TourCondition `json:"conditions,omitempty"`
	Metadata    TourMetadata    `json:"metadata"`
}
