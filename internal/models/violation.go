package models

import "fmt"

// SeverityLevel is the tier of a violation category.
type SeverityLevel string

const (
	SeverityMinor                SeverityLevel = "MINOR"
	SeverityModerate             SeverityLevel = "MODERATE"
	SeveritySerious              SeverityLevel = "SERIOUS"
	SeverityCritical             SeverityLevel = "CRITICAL"
	SeverityImmediateTermination SeverityLevel = "IMMEDIATE_TERMINATION"
)

// PointRange is an inclusive bound on the default points of a tier.
type PointRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// IMMEDIATE_TERMINATION has no point semantics and is pinned to zero.
var severityPointRanges = map[SeverityLevel]PointRange{
	SeverityMinor:                {Min: 1, Max: 2},
	SeverityModerate:             {Min: 3, Max: 4},
	SeveritySerious:              {Min: 5, Max: 6},
	SeverityCritical:             {Min: 8, Max: 10},
	SeverityImmediateTermination: {Min: 0, Max: 0},
}

// Valid reports whether the level is a known tier.
func (s SeverityLevel) Valid() bool {
	_, ok := severityPointRanges[s]
	return ok
}

// PointRange returns the allowed default points for the tier.
func (s SeverityLevel) PointRange() (PointRange, bool) {
	r, ok := severityPointRanges[s]
	return r, ok
}

// ViolationCategory is immutable reference data used to score corrective actions.
type ViolationCategory struct {
	ID            string        `db:"id" json:"id"`
	CategoryName  string        `db:"category_name" json:"categoryName"`
	SeverityLevel SeverityLevel `db:"severity_level" json:"severityLevel"`
	DefaultPoints int           `db:"default_points" json:"defaultPoints"`
	Description   string        `db:"description" json:"description,omitempty"`
}

// Validate checks that the default points sit inside the tier range.
func (c ViolationCategory) Validate() error {
	r, ok := c.SeverityLevel.PointRange()
	if !ok {
		return fmt.Errorf("category %s: unknown severity level %q", c.ID, c.SeverityLevel)
	}
	if c.DefaultPoints < r.Min || c.DefaultPoints > r.Max {
		return fmt.Errorf("category %s: %d points outside %s range %d-%d", c.ID, c.DefaultPoints, c.SeverityLevel, r.Min, r.Max)
	}
	return nil
}
