package enrichment

import "github.com/xavierca1/leadsync/internal/entity"

type Weight struct {
	Type   string
	Points int
}

// DefaultWeights is evaluated in declaration order. Types not listed score 0.
var DefaultWeights = []Weight{
	{entity.TypeEmailsReplied, 20},
	{entity.TypeLinkedinReplied, 20},
	{entity.TypeInterested, 15},
	{entity.TypeLinkedinInviteAccepted, 8},
	{entity.TypeEmailsClicked, 5},
	{entity.TypeEmailsOpened, 2},
	{entity.TypeLinkedinOpened, 2},
	{entity.TypeEmailsSent, 1},
	{entity.TypeLinkedinSent, 1},
	{entity.TypeLinkedinVisitDone, 1},
	{entity.TypeLinkedinInviteDone, 1},
	{entity.TypeEmailsFailed, -2},
	{entity.TypeEmailsBounced, -5},
	{entity.TypeEmailsUnsubscribed, -10},
	{entity.TypeNotInterested, -10},
}

// MaxRawScore is the raw score that maps to 100.
const MaxRawScore = 100

type Thresholds struct {
	High             int
	Medium           int
	Low              int
	NewMaxActivities int
}

func DefaultThresholds() Thresholds {
	return Thresholds{High: 60, Medium: 30, Low: 10, NewMaxActivities: 2}
}

// withDefaults treats the zero Thresholds as unset. Otherwise only negative
// fields fall back to their default; 0 is a valid threshold.
func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t == (Thresholds{}) {
		return d
	}
	if t.High < 0 {
		t.High = d.High
	}
	if t.Medium < 0 {
		t.Medium = d.Medium
	}
	if t.Low < 0 {
		t.Low = d.Low
	}
	if t.NewMaxActivities < 0 {
		t.NewMaxActivities = d.NewMaxActivities
	}
	return t
}
