package pipeline

import (
	"fmt"
	"strings"

	"job-matcher/internal/models"
)

// Template is the candidate-facing message for reaching a stage.
type Template struct {
	Type  string
	Title string
	Body  string
}

type stageRole struct {
	keywords []string
	kind     string
	title    string
	body     string
}

// Checked in order: "Offer Declined" is a rejection, not an offer.
var stageRoles = []stageRole{
	{[]string{"reject", "declin"}, models.NotificationApplicationRejected,
		"Application update", "Thank you for your interest in %s. The team has decided not to move forward."},
	{[]string{"hire"}, models.NotificationApplicationHired,
		"Congratulations!", "You have been hired for %s."},
	{[]string{"offer"}, models.NotificationApplicationOffer,
		"You received an offer", "You received an offer for %s."},
	{[]string{"interview"}, models.NotificationApplicationInterview,
		"Interview stage", "Your application for %s moved to the interview stage."},
	{[]string{"screen"}, models.NotificationApplicationScreening,
		"Application in review", "Your application for %s is being screened."},
}

// TemplateFor maps a destination stage name to its notification by
// case-insensitive keyword. Unknown names get a generic status change.
func TemplateFor(stageName, jobTitle string) Template {
	name := strings.ToLower(stageName)
	for _, role := range stageRoles {
		for _, kw := range role.keywords {
			if strings.Contains(name, kw) {
				return Template{Type: role.kind, Title: role.title, Body: fmt.Sprintf(role.body, jobTitle)}
			}
		}
	}
	return Template{
		Type:  models.NotificationApplicationStatusChanged,
		Title: "Application status changed",
		Body:  fmt.Sprintf("Your application for %s moved to %s.", jobTitle, stageName),
	}
}

func receivedTemplate(jobTitle string) Template {
	return Template{
		Type:  models.NotificationApplicationReceived,
		Title: "Application received",
		Body:  fmt.Sprintf("Your application for %s was received.", jobTitle),
	}
}
