package entity

import "strings"

type openKey struct {
	email    string
	template string
	step     string
}

// NormalizeActivities drops noise types and keeps only the first emailsOpened
// per (lead email, template, sequence step). Order is preserved and applying
// it twice gives the same result as once.
//
// Run it over a full fetched stream: deduplicating a time-filtered slice lets
// a repeat open slip past an earlier one that is already cached.
func NormalizeActivities(activities []Activity) []Activity {
	seen := make(map[openKey]struct{})
	out := make([]Activity, 0, len(activities))

	for _, a := range activities {
		if IsNoiseType(a.Type) {
			continue
		}
		if a.Type == TypeEmailsOpened {
			key := openKey{
				email:    strings.ToLower(strings.TrimSpace(a.LeadEmail)),
				template: a.TemplateID,
				step:     a.SequenceStep,
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, a)
	}
	return out
}
