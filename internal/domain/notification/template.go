package notification

import (
	"html"
	"regexp"
	"sort"
)

// Event names understood by the dispatch table
const (
	EventEstimateSent         = "estimate_sent"
	EventEstimateApproved     = "estimate_approved"
	EventContractSent         = "contract_sent"
	EventContractSigned       = "contract_signed"
	EventInProduction         = "in_production"
	EventReadyForDelivery     = "ready_for_delivery"
	EventTransactionCompleted = "transaction_completed"
	EventTransactionCancelled = "transaction_cancelled"
	EventDeliveryScheduled    = "delivery_scheduled"
	EventDeliveryInProgress   = "delivery_in_progress"
	EventDeliveryArriving     = "delivery_arriving"
	EventDeliveryDelayed      = "delivery_delayed"
	EventDeliveryDelivered    = "delivery_delivered"
	EventDeliveryCompleted    = "delivery_completed"
	EventDeliveryCancelled    = "delivery_cancelled"
	EventAppointmentScheduled = "appointment_scheduled"
	EventAppointmentCancelled = "appointment_cancelled"
	EventAppointmentReminder  = "appointment_reminder"
	EventWelcome              = "welcome"
)

// AllEvents lists every event name in the dispatch table
var AllEvents = []string{
	EventEstimateSent, EventEstimateApproved, EventContractSent, EventContractSigned,
	EventInProduction, EventReadyForDelivery, EventTransactionCompleted, EventTransactionCancelled,
	EventDeliveryScheduled, EventDeliveryInProgress, EventDeliveryArriving, EventDeliveryDelayed,
	EventDeliveryDelivered, EventDeliveryCompleted, EventDeliveryCancelled,
	EventAppointmentScheduled, EventAppointmentCancelled, EventAppointmentReminder, EventWelcome,
}

// IsKnownEvent reports whether name is in AllEvents
func IsKnownEvent(name string) bool {
	for _, e := range AllEvents {
		if e == name {
			return true
		}
	}
	return false
}

var placeholder = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// EmailTemplate is the email half of a template
type EmailTemplate struct {
	Subject string `yaml:"subject"`
	HTML    string `yaml:"html"`
	Text    string `yaml:"text"`
}

// Template is one row of the dispatch table: an SMS body and an email
type Template struct {
	SMS   string        `yaml:"sms"`
	Email EmailTemplate `yaml:"email"`
}

// Composed is a template with placeholders filled in
type Composed struct {
	SMS     string
	Email   EmailTemplate
	Missing []string
}

// Compose fills every {{field}} from fields. Unknown placeholders render empty
// and are listed in Missing. Values are HTML-escaped in the HTML body only.
func (t Template) Compose(fields map[string]string) Composed {
	missing := map[string]bool{}
	render := func(s string, escape func(string) string) string {
		return placeholder.ReplaceAllStringFunc(s, func(m string) string {
			key := placeholder.FindStringSubmatch(m)[1]
			v, ok := fields[key]
			if !ok {
				missing[key] = true
			}
			return escape(v)
		})
	}
	raw := func(v string) string { return v }
	c := Composed{
		SMS: render(t.SMS, raw),
		Email: EmailTemplate{
			Subject: render(t.Email.Subject, raw),
			HTML:    render(t.Email.HTML, html.EscapeString),
			Text:    render(t.Email.Text, raw),
		},
	}
	for k := range missing {
		c.Missing = append(c.Missing, k)
	}
	sort.Strings(c.Missing)
	return c
}

// Placeholders returns the distinct field names a template references
func (t Template) Placeholders() []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range []string{t.SMS, t.Email.Subject, t.Email.HTML, t.Email.Text} {
		for _, m := range placeholder.FindAllStringSubmatch(s, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				out = append(out, m[1])
			}
		}
	}
	sort.Strings(out)
	return out
}
