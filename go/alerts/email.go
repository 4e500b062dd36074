package alerts

import (
	"encoding/json"
	"strconv"
	"strings"

	"go.yoptima.org/infra/go/skerr"
)

// Placeholders recognized in message and subject templates. Substitution is
// literal; unrecognized placeholders pass through verbatim.
const (
	PlaceholderAdvertiserID = "<<ADVERTISER_ID>>"
	PlaceholderAdvertiser   = "<<ADVERTISER>>"
)

// EmailTemplate holds the configured notification text. Subject and Message
// may contain placeholders; the remaining sections are fixed.
type EmailTemplate struct {
	To      string
	Subject string
	Message string
	Subtext string
	Header  string
	Footer  string
}

// EmailDetails is the rendered notification payload handed to the
// notification transport.
type EmailDetails struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Subtext string `json:"subtext"`
	Header  string `json:"header"`
	Footer  string `json:"footer"`
}

func substitute(s string, advertiserID int64, advertiser string) string {
	return strings.NewReplacer(
		PlaceholderAdvertiserID, strconv.FormatInt(advertiserID, 10),
		PlaceholderAdvertiser, advertiser,
	).Replace(s)
}

// RenderMessage returns the alert message with placeholders substituted.
func (t EmailTemplate) RenderMessage(advertiserID int64, advertiser string) string {
	return substitute(t.Message, advertiserID, advertiser)
}

// RenderDetails returns the notification payload for the given advertiser as
// a JSON document.
func (t EmailTemplate) RenderDetails(advertiserID int64, advertiser string) (string, error) {
	details := EmailDetails{
		To:      t.To,
		Subject: substitute(t.Subject, advertiserID, advertiser),
		Subtext: t.Subtext,
		Header:  t.Header,
		Footer:  t.Footer,
	}
	b, err := json.Marshal(details)
	if err != nil {
		return "", skerr.Wrapf(err, "encoding email details")
	}
	return string(b), nil
}
