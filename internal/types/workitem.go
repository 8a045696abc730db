package types

import (
	"fmt"
	"time"
)

// Division is one of the three ranked competitive tiers. Division one
// outranks division two, which outranks division three: when the same
// game shows up under more than one division, the highest-ranked one
// owns the canonical record.
type Division string

const (
	DivisionOne   Division = "d1"
	DivisionTwo   Division = "d2"
	DivisionThree Division = "d3"
)

// AllDivisions lists divisions in canonical priority order.
var AllDivisions = []Division{DivisionOne, DivisionTwo, DivisionThree}

// Rank returns the priority rank of the division (lower = higher priority).
func (d Division) Rank() int {
	switch d {
	case DivisionOne:
		return 1
	case DivisionTwo:
		return 2
	case DivisionThree:
		return 3
	default:
		return 99
	}
}

// Number returns the numeric division code used in scoreboard URLs.
func (d Division) Number() string {
	switch d {
	case DivisionOne:
		return "1"
	case DivisionTwo:
		return "2"
	case DivisionThree:
		return "3"
	default:
		return ""
	}
}

// ParseDivision converts a string like "d1" into a Division.
func ParseDivision(s string) (Division, error) {
	switch Division(s) {
	case DivisionOne, DivisionTwo, DivisionThree:
		return Division(s), nil
	default:
		return "", fmt.Errorf("unknown division %q (want d1, d2 or d3)", s)
	}
}

// Gender is one of the two category partitions, orthogonal to division.
type Gender string

const (
	GenderMen   Gender = "men"
	GenderWomen Gender = "women"
)

// AllGenders lists genders in canonical generation order.
var AllGenders = []Gender{GenderMen, GenderWomen}

// SportCode returns the scoreboard sport code for the gender.
func (g Gender) SportCode() string {
	if g == GenderWomen {
		return "WBB"
	}
	return "MBB"
}

// ParseGender converts a string like "women" into a Gender.
func ParseGender(s string) (Gender, error) {
	switch Gender(s) {
	case GenderMen, GenderWomen:
		return Gender(s), nil
	default:
		return "", fmt.Errorf("unknown gender %q (want men or women)", s)
	}
}

// WorkItem is a single (date, division, gender) unit of scheduler work.
// Items are immutable once generated; the generation order
// (date, then gender, then division d1 < d2 < d3) determines which
// division first captures a cross-division duplicate.
type WorkItem struct {
	Date     time.Time
	Division Division
	Gender   Gender
}

// DateParts returns zero-padded year, month and day strings.
func (w WorkItem) DateParts() (year, month, day string) {
	return fmt.Sprintf("%04d", w.Date.Year()),
		fmt.Sprintf("%02d", int(w.Date.Month())),
		fmt.Sprintf("%02d", w.Date.Day())
}

// DateString returns the item date as YYYY-MM-DD.
func (w WorkItem) DateString() string {
	return w.Date.Format("2006-01-02")
}

func (w WorkItem) String() string {
	return fmt.Sprintf("%s %s %s", w.DateString(), w.Gender, w.Division)
}
