package model

import "time"

type Household struct {
	ID        string
	Name      string
	CreatedBy string
	CreatedAt time.Time
}

type User struct {
	ID           string
	Email        string
	DisplayName  string
	FirstName    string
	DigestDaily  bool
	DigestWeekly bool
	CreatedAt    time.Time
}

// GreetingName is the name used to address the user in mail.
func (u User) GreetingName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.DisplayName
}

type DigestPeriod string

const (
	PeriodDaily  DigestPeriod = "daily"
	PeriodWeekly DigestPeriod = "weekly"
)

func (p DigestPeriod) Valid() bool {
	return p == PeriodDaily || p == PeriodWeekly
}

// WantsDigest reports whether the user opted into the period's digest.
func (u User) WantsDigest(p DigestPeriod) bool {
	switch p {
	case PeriodDaily:
		return u.DigestDaily
	case PeriodWeekly:
		return u.DigestWeekly
	}
	return false
}
