// Package recovery implements centralized error classification and recovery
// orchestration. Failures from outbound calls are classified into categories
// and severities, run through an ordered chain of recovery strategies, and
// recorded in an append-only audit trail when nothing can be done.
package recovery

import (
	"errors"
	"fmt"
	"strings"
)

// Category is the kind axis of a failure classification.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryAPI
	CategoryAuthentication
	CategoryNetwork
	CategoryTimeout
	CategoryValidation
	CategoryConfiguration
	CategorySystem
)

// String returns a string representation of the category.
func (c Category) String() string {
	switch c {
	case CategoryAPI:
		return "api"
	case CategoryAuthentication:
		return "authentication"
	case CategoryNetwork:
		return "network"
	case CategoryTimeout:
		return "timeout"
	case CategoryValidation:
		return "validation"
	case CategoryConfiguration:
		return "configuration"
	case CategorySystem:
		return "system"
	default:
		return "unknown"
	}
}

// Severity is the urgency axis of a failure classification.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns a string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "low"
	}
}

// TaggedError carries an explicit category assigned by the component that
// issued the failing call. A tag always wins over keyword classification:
// the caller knows whether a call was a network hop, an auth exchange, or a
// config lookup far more precisely than message sniffing can.
type TaggedError struct {
	Category Category
	Err      error
}

// Error implements the error interface.
func (e *TaggedError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *TaggedError) Unwrap() error {
	return e.Err
}

// Tag wraps err with an explicit failure category. Tagging a nil error
// returns nil.
func Tag(err error, category Category) error {
	if err == nil {
		return nil
	}
	return &TaggedError{Category: category, Err: err}
}

// classificationRule associates a lowercase keyword with a category.
// The table is ordered and the first match wins; the order is load-bearing
// for messages that contain keywords from several groups.
type classificationRule struct {
	keyword  string
	category Category
}

var classificationRules = []classificationRule{
	{"api", CategoryAPI},
	{"http", CategoryAPI},
	{"request", CategoryAPI},
	{"response", CategoryAPI},

	{"auth", CategoryAuthentication},
	{"unauthorized", CategoryAuthentication},
	{"forbidden", CategoryAuthentication},
	{"token", CategoryAuthentication},
	{"credential", CategoryAuthentication},

	{"connection", CategoryNetwork},
	{"network", CategoryNetwork},
	{"socket", CategoryNetwork},
	{"dns", CategoryNetwork},

	{"timeout", CategoryTimeout},
	{"deadline", CategoryTimeout},

	{"validation", CategoryValidation},
	{"invalid", CategoryValidation},
	{"format", CategoryValidation},

	{"config", CategoryConfiguration},
	{"setting", CategoryConfiguration},
	{"environment", CategoryConfiguration},
	{"missing", CategoryConfiguration},

	{"system", CategorySystem},
	{"memory", CategorySystem},
	{"disk", CategorySystem},
	{"permission", CategorySystem},
}

// Classify determines the category of err. An explicit tag set with Tag wins;
// otherwise the error message and dynamic type name are matched
// case-insensitively against the ordered keyword table, first match wins.
// Errors matching nothing are CategoryUnknown.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	var tagged *TaggedError
	if errors.As(err, &tagged) {
		return tagged.Category
	}

	message := strings.ToLower(err.Error())
	typeName := strings.ToLower(fmt.Sprintf("%T", err))

	for _, rule := range classificationRules {
		if strings.Contains(message, rule.keyword) || strings.Contains(typeName, rule.keyword) {
			return rule.category
		}
	}

	return CategoryUnknown
}

// fatalIndicators mark failures that threaten the whole process: resource
// exhaustion and forced termination.
var fatalIndicators = []string{
	"out of memory",
	"cannot allocate memory",
	"too many open files",
	"signal: killed",
	"signal: terminated",
	"signal: interrupt",
}

// SeverityFor determines the severity of err given its category.
func SeverityFor(err error, category Category) Severity {
	if err != nil {
		message := strings.ToLower(err.Error())
		for _, indicator := range fatalIndicators {
			if strings.Contains(message, indicator) {
				return SeverityCritical
			}
		}
	}

	switch category {
	case CategorySystem, CategoryConfiguration:
		return SeverityHigh
	case CategoryAPI, CategoryAuthentication:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// StatusError represents an upstream HTTP failure with its status code, so
// recovery strategies can distinguish transient server trouble from permanent
// client mistakes.
type StatusError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}
