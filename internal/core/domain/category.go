package domain

import "strings"

// Category is the diagnostic classification of a failure. It drives severity
// and the causes shown to operators, never the remediation choice.
type Category string

const (
	CategorySyntax   Category = "SYNTAX"
	CategoryRuntime  Category = "RUNTIME"
	CategoryLogic    Category = "LOGIC"
	CategoryResource Category = "RESOURCE"
	CategoryUnknown  Category = "UNKNOWN"
)

// Severity of a category.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

var possibleCauses = map[Category][]string{
	CategorySyntax: {
		"malformed request payload",
		"invalid file header",
		"unsupported encoding",
	},
	CategoryRuntime: {
		"unexpected input value",
		"dependency returned an error",
		"operation timed out",
	},
	CategoryLogic: {
		"invalid processing parameters",
		"inconsistent task state",
		"threshold misconfiguration",
	},
	CategoryResource: {
		"insufficient memory",
		"disk quota exceeded",
		"file too large",
	},
	CategoryUnknown: {
		"unclassified failure",
	},
}

// ParseCategory maps a string to a Category. Anything unrecognized is UNKNOWN.
func ParseCategory(s string) Category {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := possibleCauses[c]; ok {
		return c
	}
	return CategoryUnknown
}

// Severity returns the fixed severity of the category.
func (c Category) Severity() Severity {
	switch c {
	case CategorySyntax, CategoryRuntime:
		return SeverityHigh
	case CategoryLogic:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// PossibleCauses returns a copy of the static cause list for display.
func (c Category) PossibleCauses() []string {
	causes, ok := possibleCauses[c]
	if !ok {
		causes = possibleCauses[CategoryUnknown]
	}
	return append([]string(nil), causes...)
}
