package rules

import (
	"agri-advisor/internal/models"
)

// OKMessage is returned when no rule fires
const OKMessage = "All readings are within safe thresholds."

// Rule is a single stateless predicate over a reading snapshot.
// Evaluate returns nil when the rule does not fire.
type Rule interface {
	Code() string
	Evaluate(s *models.RuleSnapshot) *models.Warning
}

// Checker evaluates its rules in registration order and collects every match.
// It is immutable after construction and safe for concurrent use.
type Checker struct {
	rules []Rule
}

// NewChecker creates a checker over the given rules
func NewChecker(rules ...Rule) *Checker {
	registered := make([]Rule, len(rules))
	copy(registered, rules)
	return &Checker{rules: registered}
}

// NewDefaultChecker creates a checker with every built-in rule
func NewDefaultChecker(t Thresholds) *Checker {
	return NewChecker(BuiltinRules(t)...)
}

// Codes returns the registered rule codes in evaluation order
func (c *Checker) Codes() []string {
	codes := make([]string, len(c.rules))
	for i, r := range c.rules {
		codes[i] = r.Code()
	}
	return codes
}

// Check validates the snapshot and runs all rules
func (c *Checker) Check(s *models.RuleSnapshot) (*models.RuleCheckResponse, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var warnings []models.Warning
	for _, r := range c.rules {
		if w := r.Evaluate(s); w != nil {
			warnings = append(warnings, *w)
		}
	}

	if len(warnings) == 0 {
		return &models.RuleCheckResponse{
			Status:  models.StatusOK,
			Message: OKMessage,
		}, nil
	}

	return &models.RuleCheckResponse{
		Status:   models.StatusWarning,
		Warnings: warnings,
	}, nil
}
