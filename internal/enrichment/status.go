package enrichment

import "github.com/xavierca1/leadsync/internal/entity"

type Status string

const (
	StatusReplied          Status = "replied"
	StatusBounced          Status = "bounced"
	StatusHighEngagement   Status = "high_engagement"
	StatusMediumEngagement Status = "medium_engagement"
	StatusLowEngagement    Status = "low_engagement"
	StatusNew              Status = "new"
	StatusCold             Status = "cold"
)

var replyTypes = []string{entity.TypeEmailsReplied, entity.TypeLinkedinReplied}

// Positive engagement supersedes an earlier bounce.
var positiveTypes = []string{
	entity.TypeEmailsOpened,
	entity.TypeEmailsClicked,
	entity.TypeLinkedinOpened,
	entity.TypeLinkedinInviteAccepted,
	entity.TypeInterested,
}

func sum(counts map[string]int, types []string) int {
	n := 0
	for _, t := range types {
		n += counts[t]
	}
	return n
}

type statusRule struct {
	status Status
	match  func(counts map[string]int, score, total int, th Thresholds) bool
}

// statusRules is evaluated top to bottom; the first match wins and cold is
// the fallback.
var statusRules = []statusRule{
	{StatusReplied, func(c map[string]int, _, _ int, _ Thresholds) bool {
		return sum(c, replyTypes) > 0
	}},
	{StatusBounced, func(c map[string]int, _, _ int, _ Thresholds) bool {
		return c[entity.TypeEmailsBounced] > 0 && sum(c, positiveTypes) == 0
	}},
	{StatusHighEngagement, func(_ map[string]int, score, _ int, th Thresholds) bool {
		return score >= th.High
	}},
	{StatusMediumEngagement, func(_ map[string]int, score, _ int, th Thresholds) bool {
		return score >= th.Medium
	}},
	{StatusLowEngagement, func(_ map[string]int, score, _ int, th Thresholds) bool {
		return score >= th.Low
	}},
	{StatusNew, func(_ map[string]int, _, total int, th Thresholds) bool {
		return total <= th.NewMaxActivities
	}},
}

func resolveStatus(counts map[string]int, score, total int, th Thresholds) Status {
	for _, rule := range statusRules {
		if rule.match(counts, score, total, th) {
			return rule.status
		}
	}
	return StatusCold
}
