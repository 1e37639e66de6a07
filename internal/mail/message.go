// Package mail renders and delivers the account and ticket mails.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"
)

// Message is a rendered plain-text mail. It is also the wire format of the
// mail queue.
type Message struct {
	To      string `json:"to"`
	ToName  string `json:"to_name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender delivers rendered messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var templates = template.Must(template.New("mail").Parse(`
{{define "transfer"}}Hi {{.Target}},

{{.Owner}} wants to transfer an AreaFiftyLAN ticket to you.
Follow the link below to accept it:

{{.URL}}

If you don't want the ticket, you can ignore this mail.
{{end}}
{{define "verification"}}Hi {{.Target}},

Thanks for signing up for AreaFiftyLAN. Please confirm your registration
by following the link below:

{{.URL}}
{{end}}
{{define "reset"}}Hi {{.Target}},

A password reset was requested for your AreaFiftyLAN account. Follow the
link below to choose a new password:

{{.URL}}

If you did not request this, you can ignore this mail.
{{end}}
`))

type templateData struct {
	Owner  string
	Target string
	URL    string
}

func render(name string, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s mail: %w", name, err)
	}
	return buf.String(), nil
}

// DecodeMessage parses a queued message.
func DecodeMessage(body []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("decoding mail message: %w", err)
	}
	if msg.To == "" {
		return Message{}, fmt.Errorf("mail message has no recipient")
	}
	return msg, nil
}
