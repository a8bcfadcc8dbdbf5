package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/wolfman30/salon-booking/pkg/logging"
)

// BookingNotice describes a booking request the spreadsheet service accepted
// as pending.
type BookingNotice struct {
	Reference   string
	Date        string
	Time        string
	End         string
	Duration    int
	ClientName  string
	ClientEmail string
	Message     string
	SubmittedAt time.Time
}

// BookingNotifier tells the salon operator about new pending requests so they
// can confirm them in the spreadsheet.
type BookingNotifier struct {
	email         EmailSender
	operatorEmail string
	logger        *logging.Logger
}

func NewBookingNotifier(email EmailSender, operatorEmail string, logger *logging.Logger) *BookingNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingNotifier{
		email:         email,
		operatorEmail: strings.TrimSpace(operatorEmail),
		logger:        logger,
	}
}

// NotifyBookingRequested e-mails the operator. It is a no-op when no sender
// or operator address is configured.
func (n *BookingNotifier) NotifyBookingRequested(ctx context.Context, notice BookingNotice) error {
	if n == nil || n.email == nil || n.operatorEmail == "" {
		if n != nil {
			n.logger.Debug("notify: operator e-mail not configured, skipping", "reference", notice.Reference)
		}
		return nil
	}

	msg := EmailMessage{
		To:      n.operatorEmail,
		ReplyTo: notice.ClientEmail,
		Subject: fmt.Sprintf("New booking request: %s %s (%s)", notice.Date, notice.Time, valueOrNA(notice.ClientName)),
		Body:    FormatBookingSummary(notice),
		HTML:    FormatBookingSummaryHTML(notice),
	}
	if err := n.email.Send(ctx, msg); err != nil {
		n.logger.Error("notify: failed to send booking notification",
			"error", err,
			"reference", notice.Reference,
			"to", n.operatorEmail,
		)
		return fmt.Errorf("notify: booking notification: %w", err)
	}
	n.logger.Info("notify: booking notification sent", "reference", notice.Reference, "to", n.operatorEmail)
	return nil
}

// FormatBookingSummary renders a plain-text summary of the request.
func FormatBookingSummary(notice BookingNotice) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Client: %s\n", valueOrNA(notice.ClientName)))
	b.WriteString(fmt.Sprintf("Email: %s\n", valueOrNA(notice.ClientEmail)))
	b.WriteString(fmt.Sprintf("Date: %s\n", notice.Date))
	b.WriteString(fmt.Sprintf("Time: %s - %s (%d min)\n", notice.Time, notice.End, notice.Duration))
	if notice.Message != "" {
		b.WriteString(fmt.Sprintf("Message: %s\n", notice.Message))
	}
	b.WriteString(fmt.Sprintf("Reference: %s\n", notice.Reference))
	if !notice.SubmittedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Submitted: %s\n", notice.SubmittedAt.Format(time.RFC1123)))
	}
	b.WriteString("Status: pending, confirm it in the schedule spreadsheet.\n")

	return b.String()
}

// FormatBookingSummaryHTML renders the summary as an HTML table for e-mail.
func FormatBookingSummaryHTML(notice BookingNotice) string {
	var messageRow string
	if notice.Message != "" {
		messageRow = row("Message", html.EscapeString(notice.Message))
	}
	var submittedRow string
	if !notice.SubmittedAt.IsZero() {
		submittedRow = row("Submitted", notice.SubmittedAt.Format(time.RFC1123))
	}
	emailCell := html.EscapeString(valueOrNA(notice.ClientEmail))
	if notice.ClientEmail != "" {
		emailCell = fmt.Sprintf(`<a href="mailto:%s">%s</a>`, html.EscapeString(notice.ClientEmail), html.EscapeString(notice.ClientEmail))
	}

	return fmt.Sprintf(`<div style="font-family:sans-serif;max-width:600px;">
<h2 style="color:#333;">New booking request</h2>
<table style="border-collapse:collapse;width:100%%;">
%s
%s
%s
%s
%s
%s
%s
</table>
<p style="color:#666;font-size:12px;">This request is pending. Confirm it in the schedule spreadsheet.</p>
</div>`,
		row("Client", html.EscapeString(valueOrNA(notice.ClientName))),
		row("Email", emailCell),
		row("Date", html.EscapeString(notice.Date)),
		row("Time", html.EscapeString(fmt.Sprintf("%s - %s (%d min)", notice.Time, notice.End, notice.Duration))),
		messageRow,
		row("Reference", html.EscapeString(notice.Reference)),
		submittedRow,
	)
}

func row(label, value string) string {
	return fmt.Sprintf(`<tr><td style="padding:6px 12px;font-weight:bold;">%s</td><td style="padding:6px 12px;">%s</td></tr>`, label, value)
}

func valueOrNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
