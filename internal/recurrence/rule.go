package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind is the repeat frequency of a rule. The zero value means the
// definition does not repeat.
type Kind string

const (
	KindNone    Kind = ""
	KindDaily   Kind = "daily"
	KindWeekly  Kind = "weekly"
	KindMonthly Kind = "monthly"
	KindYearly  Kind = "yearly"
)

// MaxInterval is the largest interval accepted at the API boundary.
const MaxInterval = 365

var (
	ErrUnknownKind     = errors.New("unknown recurrence rule")
	ErrInvalidInterval = errors.New("recurrence interval must be between 1 and 365")
)

// ParseKind maps a stored/API rule name to a Kind. "" and "none" both
// mean no recurrence.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindNone, KindDaily, KindWeekly, KindMonthly, KindYearly:
		return k, nil
	case "none":
		return KindNone, nil
	default:
		return KindNone, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

func (k Kind) String() string {
	if k == KindNone {
		return "none"
	}
	return string(k)
}

// Rule describes how a definition repeats. End is a calendar date
// (inclusive); nil means the series never ends.
type Rule struct {
	Kind     Kind
	Interval int
	End      *time.Time
}

// None returns the rule of a one-shot definition.
func None() Rule {
	return Rule{Kind: KindNone, Interval: 1}
}

// IsRecurring reports whether the rule produces more than one occurrence.
func (r Rule) IsRecurring() bool {
	return r.Kind != KindNone
}

// Validate is applied where rules enter the system (API, stored rows).
// The expander and advancers assume a valid rule.
func (r Rule) Validate() error {
	switch r.Kind {
	case KindNone, KindDaily, KindWeekly, KindMonthly, KindYearly:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, string(r.Kind))
	}
	if r.Interval < 1 || r.Interval > MaxInterval {
		return ErrInvalidInterval
	}
	return nil
}

// interval guards against unset intervals coming from old rows.
func (r Rule) interval() int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}
