package lemlist

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

type CampaignDTO struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

type ActivityDTO struct {
	ID         string `json:"_id"`
	Type       string `json:"type"`
	CampaignID string `json:"campaignId"`
	CreatedAt  string `json:"createdAt"`

	LeadID              string     `json:"leadId"`
	LeadEmail           string     `json:"leadEmail"`
	Email               string     `json:"email"`
	LeadFirstName       string     `json:"leadFirstName"`
	FirstName           string     `json:"firstName"`
	LeadLastName        string     `json:"leadLastName"`
	LastName            string     `json:"lastName"`
	HubspotLeadID       flexString `json:"hubspotLeadId"`
	LinkedinURL         string     `json:"linkedinUrl"`
	LinkedinURLSalesNav string     `json:"linkedinUrlSalesNav"`
	LinkedinPublicURL   string     `json:"linkedinPublicUrl"`
	LeadCompanyName     string     `json:"leadCompanyName"`
	CompanyName         string     `json:"companyName"`
	JobTitle            string     `json:"jobTitle"`

	EmailTemplateID flexString `json:"emailTemplateId"`
	SequenceStep    flexString `json:"sequenceStep"`

	Subject        *flexString `json:"subject"`
	URL            *flexString `json:"url"`
	Message        *flexString `json:"message"`
	ConditionLabel string      `json:"conditionLabel"`
	ConditionValue *flexBool   `json:"conditionValue"`

	Raw json.RawMessage `json:"-"`
}

type LeadDetailsDTO struct {
	Email               string     `json:"email"`
	HubspotLeadID       flexString `json:"hubspotLeadId"`
	LinkedinURL         string     `json:"linkedinUrl"`
	LinkedinURLSalesNav string     `json:"linkedinUrlSalesNav"`
	LinkedinPublicURL   string     `json:"linkedinPublicUrl"`
	JobTitle            string     `json:"jobTitle"`
	CompanyName         string     `json:"companyName"`
}

// flexString accepts a JSON string, number or null.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string {
	return strings.TrimSpace(string(f))
}

// flexBool accepts true/false, 0/1 and their string forms.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch strings.ToLower(raw) {
	case "true", "1", "yes":
		*f = true
	case "false", "0", "no", "", "null":
		*f = false
	default:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		*f = v != 0
	}
	return nil
}
