package mail

import (
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/leadsync/internal/entity"
)

type SyncReportData struct {
	Report   entity.SyncReport
	Duration string
	Failed   bool
}

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       []string
	Dialer   Dialer
}
