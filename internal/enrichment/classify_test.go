package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobLevelClassifier(t *testing.T) {
	c := JobLevelClassifier()

	tests := map[string]string{
		"CEO & Co-Founder":           "C-Level",
		"Chief Revenue Officer":      "C-Level",
		"Geschäftsführer":            "C-Level",
		"Vice President of Sales":    "VP",
		"SVP, Engineering":           "VP",
		"Head of Marketing":          "Director",
		"Director, Customer Success": "Director",
		"Sales Manager":              "Manager",
		"Senior Software Engineer":   "Senior",
		"Software Engineer":          DefaultJobLevel,
		"Leadership coach":           DefaultJobLevel,
		"":                           "",
	}
	for title, want := range tests {
		t.Run(title, func(t *testing.T) {
			assert.Equal(t, want, c.Classify(title))
		})
	}
}

func TestDepartmentClassifier(t *testing.T) {
	c := DepartmentClassifier()

	tests := map[string]string{
		"Head of Sales DACH":          "Sales",
		"Product Marketing Manager":   "Marketing",
		"CTO":                         "Engineering",
		"IT-Leiter":                   "Engineering",
		"Senior Product Owner":        "Product",
		"CFO":                         "Finance",
		"Talent Acquisition Lead":     "HR",
		"VP Operations":               "Operations",
		"Customer Success Manager":    "Customer Success",
		"CEO":                         "Executive",
		"Wizard":                      DefaultDepartment,
		"Digital transformation lead": DefaultDepartment,
	}
	for title, want := range tests {
		t.Run(title, func(t *testing.T) {
			assert.Equal(t, want, c.Classify(title))
		})
	}
}

func TestClassifier_WordBoundaries(t *testing.T) {
	c := NewClassifier([]Rule{{"IT", []string{"it"}}}, "none")

	assert.Equal(t, "none", c.Classify("Digital transformation"))
	assert.Equal(t, "IT", c.Classify("Head of IT"))
}
