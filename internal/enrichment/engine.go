package enrichment

import (
	"math"
	"time"

	"github.com/xavierca1/leadsync/internal/entity"
)

// Engine turns a lead's activity set into Metrics. It holds only its
// configuration, so Compute is a pure function of its inputs.
type Engine struct {
	weights    []Weight
	maxRaw     int
	thresholds Thresholds
}

func NewEngine(weights []Weight, thresholds Thresholds) *Engine {
	if len(weights) == 0 {
		weights = DefaultWeights
	}
	return &Engine{
		weights:    weights,
		maxRaw:     MaxRawScore,
		thresholds: thresholds.withDefaults(),
	}
}

func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// RawScore is the weighted sum of counts, walking the weight table in order.
func (e *Engine) RawScore(counts map[string]int) int {
	raw := 0
	for _, w := range e.weights {
		raw += w.Points * counts[w.Type]
	}
	return raw
}

// NormalizeScore maps a raw score onto 0..100.
func (e *Engine) NormalizeScore(raw int) int {
	score := int(math.Round(float64(raw) * 100 / float64(e.maxRaw)))
	return max(0, min(100, score))
}

// Compute returns false when the lead has no activity; no score is produced
// in that case.
func (e *Engine) Compute(activities []entity.Activity, now time.Time) (Metrics, bool) {
	if len(activities) == 0 {
		return Metrics{}, false
	}

	m := Metrics{Counts: make(map[string]int)}
	campaigns := make(map[string]struct{})
	for i, a := range activities {
		m.Counts[a.Type]++
		m.Total++
		if a.CampaignID != "" {
			campaigns[a.CampaignID] = struct{}{}
		}
		if i == 0 || a.CreatedAt.Before(m.FirstActivity) {
			m.FirstActivity = a.CreatedAt
		}
		if i == 0 || !a.CreatedAt.Before(m.LastActivity) {
			m.LastActivity = a.CreatedAt
			m.LastActivityType = a.Type
		}
	}
	m.Campaigns = len(campaigns)

	m.RawScore = e.RawScore(m.Counts)
	m.Score = e.NormalizeScore(m.RawScore)
	m.Status = resolveStatus(m.Counts, m.Score, m.Total, e.thresholds)

	m.DaysSinceFirst = daysBetween(m.FirstActivity, now)
	m.DaysSinceLast = daysBetween(m.LastActivity, now)

	sent := m.Counts[entity.TypeEmailsSent]
	m.OpenRate = rate(m.Counts[entity.TypeEmailsOpened], sent)
	m.ClickRate = rate(m.Counts[entity.TypeEmailsClicked], sent)
	m.ReplyRate = rate(m.Counts[entity.TypeEmailsReplied], sent)
	m.LinkedInAcceptRate = rate(m.Counts[entity.TypeLinkedinInviteAccepted], m.Counts[entity.TypeLinkedinInviteDone])

	return m, true
}

// rate is a percentage rounded to one decimal; zero when den is zero.
func rate(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return math.Round(float64(num)*1000/float64(den)) / 10
}

func daysBetween(from, to time.Time) int {
	if from.IsZero() || to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}
