package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
}

type appointmentEmailData struct {
	baseEmailData
	RecipientName string
	AppointmentID string
	ScheduledDate string
	Reason        string
	Details       map[string]string
}

func newAppointmentEmailData(title string, msg AppointmentEmail) appointmentEmailData {
	details := msg.Details
	if details == nil {
		details = map[string]string{}
	}
	return appointmentEmailData{
		baseEmailData: baseEmailData{
			Title:      title,
			Heading:    title,
			Subheading: "Appointment " + msg.AppointmentID,
		},
		RecipientName: msg.RecipientName,
		AppointmentID: msg.AppointmentID,
		ScheduledDate: msg.ScheduledDate,
		Reason:        msg.Reason,
		Details:       details,
	}
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
