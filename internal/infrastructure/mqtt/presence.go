package mqtt

import (
	"encoding/json"
	"time"
)

// Presence values published on Topics.ClientStatus. The daemon watches these
// to release cameras held for a client that went away.
const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"

	ReasonShutdown   = "graceful_shutdown"
	ReasonConnection = "unexpected_disconnect"
)

// Presence is the retained status document for one client.
type Presence struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func presencePayload(clientID, status, reason string) []byte {
	b, err := json.Marshal(Presence{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		// Presence has only string fields.
		panic(err)
	}
	return b
}
