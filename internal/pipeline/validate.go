package pipeline

import (
	"fmt"
	"strings"
)

// Rule-based validation of design text, plus a lightweight confidence
// review and a bounded correction loop. The checks are deliberately
// cheap string scans: they catch the common failure modes (missing
// sections, conflicting database choices, over-scoped architecture)
// without another LLM round trip.

// ValidationIssue is one problem found in a design.
type ValidationIssue struct {
	Code            string
	Message         string
	AutoCorrectable bool
	Severity        string
	Suggestion      string
}

// ValidationReport is the outcome of all design checks.
type ValidationReport struct {
	IsValid         bool
	AutoCorrectable bool
	Issues          []ValidationIssue
	Checks          map[string]bool
}

var requiredSections = []string{"architecture", "database", "testing"}

var overEngineeringKeywords = []string{"microservice", "kubernetes", "distributed", "event sourcing", "cqrs"}

var scopeKeywords = []string{"microservice", "distributed", "kubernetes", "redis", "elasticsearch", "kafka", "rabbitmq", "graphql"}

// ComplexityProfile scopes the validation checks. A minimal profile
// rejects heavyweight architecture.
type ComplexityProfile struct {
	DepthLevel string
}

// Minimal reports whether the profile asks for the smallest viable design.
func (p *ComplexityProfile) Minimal() bool {
	return p != nil && p.DepthLevel == "minimal"
}

// ValidateDesign runs every rule-based check against the design text.
func ValidateDesign(designText string, profile *ComplexityProfile) ValidationReport {
	var issues []ValidationIssue
	checks := make(map[string]bool)

	checks["completeness"] = checkCompleteness(designText, &issues)
	checks["consistency"] = checkConsistency(designText, &issues)
	checks["scope_alignment"] = checkScopeAlignment(designText, profile, &issues)
	checks["over_engineering"] = checkOverEngineering(designText, profile, &issues)

	isValid := true
	for _, ok := range checks {
		if !ok {
			isValid = false
			break
		}
	}
	autoCorrectable := true
	for _, issue := range issues {
		if issue.Severity == "error" {
			isValid = false
		}
		if !issue.AutoCorrectable {
			autoCorrectable = false
		}
	}

	return ValidationReport{
		IsValid:         isValid,
		AutoCorrectable: autoCorrectable,
		Issues:          issues,
		Checks:          checks,
	}
}

func checkCompleteness(designText string, issues *[]ValidationIssue) bool {
	lower := strings.ToLower(designText)
	var missing []string
	for _, section := range requiredSections {
		if !strings.Contains(lower, section) {
			missing = append(missing, section)
		}
	}
	if len(missing) > 0 {
		*issues = append(*issues, ValidationIssue{
			Code:            "completeness.missing_sections",
			Message:         "Missing required sections: " + strings.Join(missing, ", "),
			AutoCorrectable: true,
			Severity:        "warning",
			Suggestion:      "Add sections for: " + strings.Join(missing, ", "),
		})
		return false
	}
	return true
}

func checkConsistency(designText string, issues *[]ValidationIssue) bool {
	lower := strings.ToLower(designText)
	var choices []string
	for _, db := range []string{"postgresql", "mysql", "mongodb", "sqlite"} {
		if strings.Contains(lower, db) {
			choices = append(choices, db)
		}
	}
	if len(choices) > 1 {
		*issues = append(*issues, ValidationIssue{
			Code:            "consistency.multiple_databases",
			Message:         "Multiple databases mentioned: " + strings.Join(choices, ", "),
			AutoCorrectable: false,
			Severity:        "warning",
			Suggestion:      "Clarify primary database choice",
		})
		return false
	}
	return true
}

func checkScopeAlignment(designText string, profile *ComplexityProfile, issues *[]ValidationIssue) bool {
	if !profile.Minimal() {
		return true
	}
	lower := strings.ToLower(designText)
	found := 0
	for _, kw := range scopeKeywords {
		if strings.Contains(lower, kw) {
			found++
		}
	}
	if found > 2 {
		*issues = append(*issues, ValidationIssue{
			Code:            "scope_alignment.over_scoped",
			Message:         "Design complexity exceeds minimal profile",
			AutoCorrectable: true,
			Severity:        "warning",
			Suggestion:      "Simplify architecture for minimal scope",
		})
		return false
	}
	return true
}

func checkOverEngineering(designText string, profile *ComplexityProfile, issues *[]ValidationIssue) bool {
	if !profile.Minimal() {
		return true
	}
	lower := strings.ToLower(designText)
	var found []string
	for _, kw := range overEngineeringKeywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	if len(found) > 0 {
		*issues = append(*issues, ValidationIssue{
			Code:            "over_engineering.complex_for_simple",
			Message:         "Over-engineered patterns for minimal project: " + strings.Join(found, ", "),
			AutoCorrectable: true,
			Severity:        "warning",
			Suggestion:      "Simplify architecture for project scale",
		})
		return false
	}
	return true
}

// ReviewResult is the confidence assessment of a validated design.
type ReviewResult struct {
	Confidence float64
	Notes      string
	Risks      []string
}

// ReviewDesign scores a design from its validation report. Valid designs
// score 0.9; designs with only auto-correctable issues score 0.7; any
// issue requiring a human drops the score to 0.5.
func ReviewDesign(report ValidationReport) ReviewResult {
	if report.IsValid {
		return ReviewResult{Confidence: 0.9, Notes: "Design passes all rule-based checks."}
	}

	confidence := 0.7
	for _, issue := range report.Issues {
		if !issue.AutoCorrectable {
			confidence = 0.5
			break
		}
	}
	risks := make([]string, len(report.Issues))
	for i, issue := range report.Issues {
		risks[i] = issue.Code
	}
	return ReviewResult{
		Confidence: confidence,
		Notes:      "Design has validation issues; manual review recommended.",
		Risks:      risks,
	}
}

// Correction loop bounds.
const (
	MaxCorrectionIterations = 3
	ConfidenceThreshold     = 0.8
)

// CorrectionResult is the outcome of the validate-correct loop.
type CorrectionResult struct {
	DesignText           string
	Validation           ValidationReport
	Review               ReviewResult
	RequiresHumanReview  bool
	MaxIterationsReached bool
	IterationsUsed       int
}

// CorrectDesign runs up to MaxCorrectionIterations of validate → review →
// annotate. It accepts as soon as the design is valid with confidence
// above the threshold, and bails to human review when an issue cannot be
// auto-corrected.
func CorrectDesign(designText string, profile *ComplexityProfile) CorrectionResult {
	current := designText

	for iteration := range MaxCorrectionIterations {
		validation := ValidateDesign(current, profile)
		review := ReviewDesign(validation)

		if validation.IsValid && review.Confidence > ConfidenceThreshold {
			return CorrectionResult{
				DesignText:     current,
				Validation:     validation,
				Review:         review,
				IterationsUsed: iteration + 1,
			}
		}
		if !validation.AutoCorrectable {
			return CorrectionResult{
				DesignText:          current,
				Validation:          validation,
				Review:              review,
				RequiresHumanReview: true,
				IterationsUsed:      iteration + 1,
			}
		}

		current = applyCorrections(current, validation, review)
	}

	validation := ValidateDesign(current, profile)
	return CorrectionResult{
		DesignText:           current,
		Validation:           validation,
		Review:               ReviewDesign(validation),
		MaxIterationsReached: true,
		IterationsUsed:       MaxCorrectionIterations,
	}
}

// applyCorrections annotates the design with a correction footer listing
// each resolved issue and remaining risks.
func applyCorrections(designText string, validation ValidationReport, review ReviewResult) string {
	lines := []string{"\n\n---", "Corrections applied based on validation checks."}
	for _, issue := range validation.Issues {
		if issue.AutoCorrectable {
			lines = append(lines, fmt.Sprintf("- Resolved: %s", issue.Code))
		}
	}
	if len(review.Risks) > 0 {
		lines = append(lines, "- Remaining risks: "+strings.Join(review.Risks, ", "))
	}
	return designText + "\n" + strings.Join(lines, "\n")
}
