package quota

import "time"

// Tier is a subject's plan level.
type Tier string

const (
	TierFree  Tier = "free"
	TierVIP   Tier = "vip"
	TierStaff Tier = "staff"
)

// Valid reports whether the tier is known.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierVIP, TierStaff:
		return true
	}
	return false
}

// Unlimited reports whether the tier bypasses all quota checks.
func (t Tier) Unlimited() bool { return t == TierStaff }

// Cost is the resource footprint of one orchestration run.
// Tokens is the token price; SpecialistCalls counts billable specialist
// invocations for the free-tier daily gate.
type Cost struct {
	Tokens          int `json:"tokens"`
	SpecialistCalls int `json:"specialistCalls"`
}

// Add returns the element-wise sum.
func (c Cost) Add(other Cost) Cost {
	return Cost{Tokens: c.Tokens + other.Tokens, SpecialistCalls: c.SpecialistCalls + other.SpecialistCalls}
}

// IsZero reports whether the cost charges nothing.
func (c Cost) IsZero() bool { return c.Tokens == 0 && c.SpecialistCalls == 0 }

// State is a subject's quota snapshot. Only Commit mutates it durably.
type State struct {
	SubjectID      string    `json:"subjectId"`
	Tier           Tier      `json:"tier"`
	TotalAllowance int       `json:"totalAllowance"`
	Consumed       int       `json:"consumed"`
	DailyAllowance int       `json:"dailyAllowance"`
	DailyConsumed  int       `json:"dailyConsumed"`
	LastReset      time.Time `json:"lastReset"`
}

// dailyGated reports whether the daily specialist-call cap applies.
// The cap is a free-tier policy, not a token-count derivation.
func (s State) dailyGated() bool { return s.Tier == TierFree }

func defaultState(subjectID string, tier Tier, today time.Time) State {
	st := State{
		SubjectID: subjectID,
		Tier:      tier,
		LastReset: today,
	}
	switch tier {
	case TierVIP:
		st.TotalAllowance = 10000
		st.DailyAllowance = 0 // uncapped
	case TierStaff:
		st.TotalAllowance = 0 // unlimited, never checked
		st.DailyAllowance = 0
	default:
		st.Tier = TierFree
		st.TotalAllowance = 100
		st.DailyAllowance = 1
	}
	return st
}

// utcDay truncates a time to its UTC calendar day.
func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
