package email

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/insightball/backend/pkg/entitlement"
)

// TrialReminder emails a subject shortly before their trial converts into a
// paid subscription, so the first charge never comes as a surprise. It plugs
// into the billing event pipeline as its trial notification hook.
type TrialReminder struct {
	sender     EmailSender
	productURL string
}

// NewTrialReminder creates a reminder bound to a sender. productURL is the
// dashboard address used in the email's call to action.
func NewTrialReminder(sender EmailSender, productURL string) *TrialReminder {
	if sender == nil {
		panic("email: EmailSender is required")
	}
	return &TrialReminder{sender: sender, productURL: productURL}
}

// TrialEndingSoon sends the pre-charge reminder. Subjects without an email
// address on file are skipped silently; there is nowhere to deliver to.
func (r *TrialReminder) TrialEndingSoon(ctx context.Context, subject *entitlement.Subject, debitDate time.Time) error {
	if subject.Email == "" {
		return nil
	}

	name := subject.Name
	if name == "" {
		name = "there"
	}

	var body strings.Builder
	err := trialReminderTmpl.Execute(&body, trialReminderData{
		Name:       name,
		Plan:       string(subject.Plan),
		DebitDate:  debitDate.Format("January 2, 2006"),
		ProductURL: r.productURL,
	})
	if err != nil {
		return fmt.Errorf("render trial reminder: %w", err)
	}

	return r.sender.SendEmail(ctx, SendEmailParams{
		SendTo:   subject.Email,
		Subject:  fmt.Sprintf("Your trial ends on %s", debitDate.Format("January 2")),
		BodyHTML: body.String(),
		Tag:      "trial-ending",
	})
}

type trialReminderData struct {
	Name       string
	Plan       string
	DebitDate  string
	ProductURL string
}

var trialReminderTmpl = template.Must(template.New("trial_reminder").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #1a1a2e; max-width: 560px; margin: 0 auto; padding: 24px;">
	<p>Hi {{.Name}},</p>
	<p>Your free trial ends soon. On <strong>{{.DebitDate}}</strong> your
	{{.Plan}} subscription starts and the first payment will be collected.</p>
	<p>If you want to keep analyzing matches, there is nothing to do. If not,
	you can cancel any time before that date from your billing settings and
	you won't be charged.</p>
	{{if .ProductURL}}<p><a href="{{.ProductURL}}/billing" style="display: inline-block; padding: 10px 20px; background: #2563eb; color: #ffffff; text-decoration: none; border-radius: 6px;">Manage subscription</a></p>{{end}}
	<p>Questions? Just reply to this email.</p>
</body>
</html>`))
