package grading

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
)

var (
	// errors
	ErrNoBand = errors.New("no grade band matches this percentage")
)

// Band is one row of the grading scale: a closed percentage interval mapped
// to a letter grade and a grade point.
type Band struct {
	Letter     string  `json:"letter" db:"letter" validate:"required"`
	MinPercent float64 `json:"min_percent" db:"min_percent" validate:"min=0,max=100"`
	MaxPercent float64 `json:"max_percent" db:"max_percent" validate:"min=0,max=100,gtefield=MinPercent"`
	GradePoint float64 `json:"grade_point" db:"grade_point" validate:"min=0"`
	IsPassing  bool    `json:"is_passing" db:"is_passing"`
	Order      int     `json:"order" db:"ord"`
}

// Contains reports whether pct falls inside the band (both ends closed).
func (b Band) Contains(pct float64) bool {
	return b.MinPercent <= pct && pct <= b.MaxPercent
}

// Scale is an ordered list of non-overlapping bands covering 0-100.
type Scale []Band

// DefaultScale is the canonical 6-band table on a 5-point scale.
func DefaultScale() Scale {
	return Scale{
		{Letter: "A", MinPercent: 70, MaxPercent: 100, GradePoint: 5, IsPassing: true, Order: 1},
		{Letter: "B", MinPercent: 60, MaxPercent: 69, GradePoint: 4, IsPassing: true, Order: 2},
		{Letter: "C", MinPercent: 50, MaxPercent: 59, GradePoint: 3, IsPassing: true, Order: 3},
		{Letter: "D", MinPercent: 45, MaxPercent: 49, GradePoint: 2, IsPassing: true, Order: 4},
		{Letter: "E", MinPercent: 40, MaxPercent: 44, GradePoint: 1, IsPassing: true, Order: 5},
		{Letter: "F", MinPercent: 0, MaxPercent: 39, GradePoint: 0, IsPassing: false, Order: 6},
	}
}

// Validate asserts the bands do not overlap and cover 0-100 contiguously.
// A misconfigured scale would make GradeFor ambiguous or partial, so this
// runs on every write.
func (s Scale) Validate() error {
	if len(s) == 0 {
		return core.NewValidationError(errors.New("grading scale cannot be empty"))
	}
	for i, b := range s {
		if err := core.Validate.Struct(b); err != nil {
			return err
		}
		if b.MinPercent > b.MaxPercent {
			return core.NewValidationError(
				fmt.Errorf("band %q: min_percent %.2f exceeds max_percent %.2f", b.Letter, b.MinPercent, b.MaxPercent))
		}
		for _, other := range s[i+1:] {
			if b.Letter == other.Letter {
				return core.NewValidationError(fmt.Errorf("duplicate band letter %q", b.Letter))
			}
		}
	}

	byMin := make(Scale, len(s))
	copy(byMin, s)
	sort.Slice(byMin, func(i, j int) bool { return byMin[i].MinPercent < byMin[j].MinPercent })

	if byMin[0].MinPercent != 0 {
		return core.NewValidationError(errors.New("grading scale must start at 0"))
	}
	if byMin[len(byMin)-1].MaxPercent != 100 {
		return core.NewValidationError(errors.New("grading scale must end at 100"))
	}
	for i := 1; i < len(byMin); i++ {
		prev, cur := byMin[i-1], byMin[i]
		if cur.MinPercent <= prev.MaxPercent {
			return core.NewValidationError(
				fmt.Errorf("bands %q and %q overlap", prev.Letter, cur.Letter))
		}
		if cur.MinPercent-prev.MaxPercent > 1 {
			return core.NewValidationError(
				fmt.Errorf("gap between bands %q and %q", prev.Letter, cur.Letter))
		}
	}
	return nil
}

// GradeFor maps a percentage to its band, scanning in display order.
// Exactly one band matches any percentage on a valid scale. Fractional
// scores falling between two integer boundaries (e.g. 39.5 on a 39|40
// split) resolve to the lower band.
func (s Scale) GradeFor(pct float64) (Band, error) {
	if pct < 0 || pct > 100 {
		return Band{}, ErrNoBand
	}

	ordered := make(Scale, len(s))
	copy(ordered, s)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	for _, b := range ordered {
		if b.Contains(pct) {
			return b, nil
		}
	}

	// between integer boundaries: take the band below
	var best *Band
	for i := range ordered {
		b := ordered[i]
		if b.MaxPercent <= pct && (best == nil || b.MaxPercent > best.MaxPercent) {
			best = &ordered[i]
		}
	}
	if best == nil {
		return Band{}, ErrNoBand
	}
	return *best, nil
}
