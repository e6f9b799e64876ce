package syncer

import (
	"regexp"
	"time"
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusOffline    Status = "offline"
)

// connectedAutoHide is how long a "connected" notice stays visible.
const connectedAutoHide = 4 * time.Second

type StatusEvent struct {
	Status         Status
	Message        string
	Detail         string
	AutoHide       time.Duration
	ReauthRequired bool
}

type Listener func(StatusEvent)

var authDetailPattern = regexp.MustCompile(`(?i)auth|sign\s?in|login`)

func newStatusEvent(status Status, detail string, reauth bool) StatusEvent {
	ev := StatusEvent{Status: status, Detail: detail, ReauthRequired: reauth}
	switch status {
	case StatusConnecting:
		ev.Message = "Connecting to the fleet data server…"
	case StatusConnected:
		ev.Message = "Data is synced to the fleet server. Every device signed in to it sees the same records."
		ev.AutoHide = connectedAutoHide
	case StatusOffline:
		ev.Message = offlineMessage(detail)
	}
	return ev
}

func offlineMessage(detail string) string {
	msg := "Unable to reach the fleet data server. Changes stay in the local cache until the connection is restored."
	if detail != "" {
		msg += " (" + detail + ")"
	}
	if detail != "" && authDetailPattern.MatchString(detail) {
		return msg + " Sign in with your fleet-admin credentials to resume syncing."
	}
	return msg + ` Start the server with "fleet-admin serve" or point FLEET_API_URL at your deployed API.`
}
