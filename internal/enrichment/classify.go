package enrichment

import (
	"strings"
	"unicode"
)

// Rule maps a category to the keywords that select it. Keywords match whole
// words of the normalized title; multi-word keywords match a word sequence.
type Rule struct {
	Category string
	Keywords []string
}

// Classifier assigns the first category, in rule order, whose keywords
// appear in a title.
type Classifier struct {
	rules    []Rule
	fallback string
}

func NewClassifier(rules []Rule, fallback string) Classifier {
	return Classifier{rules: rules, fallback: fallback}
}

// Classify returns "" for a blank title and the fallback when no rule
// matches.
func (c Classifier) Classify(title string) string {
	normalized := normalizeTitle(title)
	if normalized == "" {
		return ""
	}
	padded := " " + normalized + " "
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(padded, " "+normalizeTitle(kw)+" ") {
				return rule.Category
			}
		}
	}
	return c.fallback
}

// normalizeTitle lowercases and collapses everything that is not a letter or
// digit into single spaces.
func normalizeTitle(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

const (
	DefaultJobLevel   = "Individual Contributor"
	DefaultDepartment = "Other"
)

// "president" alone is left out so that "vice president" lands on VP.
var JobLevelRules = []Rule{
	{"C-Level", []string{"ceo", "cto", "cfo", "coo", "cmo", "cio", "cro", "cpo", "chief", "founder", "owner", "managing director", "geschäftsführer", "geschäftsführerin", "inhaber", "gründer"}},
	{"VP", []string{"vp", "svp", "evp", "vice president"}},
	{"Director", []string{"director", "head", "leiter", "leiterin", "bereichsleiter"}},
	{"Manager", []string{"manager", "lead", "team lead", "teamlead", "supervisor"}},
	{"Senior", []string{"senior", "sr", "principal", "staff"}},
}

var DepartmentRules = []Rule{
	{"Sales", []string{"sales", "account executive", "business development", "bdr", "sdr", "vertrieb"}},
	{"Marketing", []string{"marketing", "growth", "brand", "content", "seo"}},
	{"Engineering", []string{"engineering", "engineer", "developer", "software", "devops", "it", "cto", "technology"}},
	{"Product", []string{"product", "cpo"}},
	{"Finance", []string{"finance", "cfo", "accounting", "controller", "controlling"}},
	{"HR", []string{"hr", "human resources", "people", "talent", "recruiting", "recruiter", "personal"}},
	{"Operations", []string{"operations", "coo", "ops", "logistics", "supply chain"}},
	{"Customer Success", []string{"customer success", "support", "customer service"}},
	{"Executive", []string{"ceo", "founder", "owner", "managing director", "geschäftsführer", "geschäftsführerin", "inhaber"}},
}

func JobLevelClassifier() Classifier {
	return NewClassifier(JobLevelRules, DefaultJobLevel)
}

func DepartmentClassifier() Classifier {
	return NewClassifier(DepartmentRules, DefaultDepartment)
}
