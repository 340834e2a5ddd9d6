package notification

import (
	"fmt"
	"strings"

	"repair_ops_backend/internal/notification/outbox"
)

// whatsAppMessage renders the plain text variant of a notification. The
// second return is false for templates without a text variant.
func whatsAppMessage(template string, p outbox.NotificationPayload) (string, bool) {
	name := strings.TrimSpace(p.Recipient.Name)
	if name == "" {
		name = "there"
	}
	data := p.Data
	if data == nil {
		data = map[string]string{}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", name)

	switch template {
	case outbox.TemplateAppointmentCancelled:
		fmt.Fprintf(&b, "Your repair appointment on %s has been cancelled.\nReason: %s", p.ScheduledDate, p.Reason)
		if data["refundStatus"] == "PENDING" {
			b.WriteString("\nA refund has been requested and will be processed shortly.")
		}
	case outbox.TemplateTechnicianUnassigned:
		fmt.Fprintf(&b, "You are no longer assigned to the repair job on %s.\nReason: %s", p.ScheduledDate, p.Reason)
	case outbox.TemplateTechnicianAssigned:
		fmt.Fprintf(&b, "You have been assigned to a repair job on %s (status %s).", p.ScheduledDate, data["status"])
		if cost := data["newEstimatedCost"]; cost != "" {
			fmt.Fprintf(&b, "\nAgreed estimate: %s", cost)
		}
	case outbox.TemplateCustomerTechChanged:
		fmt.Fprintf(&b, "Your repair on %s will now be handled by %s.", p.ScheduledDate, data["newTechnicianName"])
		if cost := data["newEstimatedCost"]; cost != "" {
			fmt.Fprintf(&b, "\nThe updated estimate is %s.", cost)
		}
	default:
		return "", false
	}

	return b.String(), true
}
