// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/traveal/internal/models"
)

// mapsURL links to a location in a maps app.
func mapsURL(loc models.Location) string {
	return fmt.Sprintf("https://maps.google.com/?q=%.6f,%.6f", loc.Latitude, loc.Longitude)
}

func alertTypeLabel(t models.AlertType) string {
	switch t {
	case models.AlertTypeRouteDeviation:
		return "left their planned route"
	case models.AlertTypeManualTrigger:
		return "raised an SOS alert"
	case models.AlertTypePanic:
		return "pressed the panic button"
	case models.AlertTypeTamperDetection:
		return "may have had their device tampered with"
	default:
		return "raised an SOS alert"
	}
}

// alertMessage is the content sent to each contact on dispatch.
type alertMessage struct {
	SMS       string
	Subject   string
	EmailBody string
	PushTitle string
	PushBody  string
	PushData  map[string]string
}

func buildAlertMessage(contact models.EmergencyContact, loc models.Location, t models.AlertType, at time.Time) alertMessage {
	link := mapsURL(loc)
	what := alertTypeLabel(t)

	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n", contact.Name)
	fmt.Fprintf(&body, "A Traveal user who listed you as an emergency contact %s.\n\n", what)
	fmt.Fprintf(&body, "Last known location: %s\n", link)
	fmt.Fprintf(&body, "Time: %s\n\n", at.UTC().Format(time.RFC1123))
	body.WriteString("Please try to reach them. If you cannot, contact local emergency services.\n")

	return alertMessage{
		SMS:       fmt.Sprintf("TRAVEAL SOS: your contact %s. Location: %s", what, link),
		Subject:   "Traveal SOS alert",
		EmailBody: body.String(),
		PushTitle: "SOS alert",
		PushBody:  fmt.Sprintf("Your contact %s.", what),
		PushData: map[string]string{
			"kind":       "sos_alert",
			"alert_type": string(t),
			"latitude":   fmt.Sprintf("%.6f", loc.Latitude),
			"longitude":  fmt.Sprintf("%.6f", loc.Longitude),
		},
	}
}

func statusLabel(s models.AlertStatus) string {
	switch s {
	case models.AlertStatusResolved:
		return "has confirmed they are safe"
	case models.AlertStatusCancelled:
		return "cancelled the alert as a false alarm"
	case models.AlertStatusEscalated:
		return "did not respond; the alert was escalated to the authorities"
	default:
		return "has an updated alert status"
	}
}

func buildStatusMessage(contact models.EmergencyContact, status models.AlertStatus, loc *models.Location) alertMessage {
	what := statusLabel(status)
	sms := fmt.Sprintf("TRAVEAL SOS update: your contact %s.", what)

	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n", contact.Name)
	fmt.Fprintf(&body, "Update on the earlier SOS alert: your contact %s.\n", what)
	if loc != nil {
		link := mapsURL(*loc)
		sms += " Location: " + link
		fmt.Fprintf(&body, "\nLast known location: %s\n", link)
	}

	data := map[string]string{"kind": "sos_status", "status": string(status)}
	return alertMessage{
		SMS:       sms,
		Subject:   "Traveal SOS update",
		EmailBody: body.String(),
		PushTitle: "SOS update",
		PushBody:  fmt.Sprintf("Your contact %s.", what),
		PushData:  data,
	}
}
