package event

type Type string

const (
	TypeSessionUpdated     Type = "session.updated"
	TypeSessionCheckFailed Type = "session.check_failed"
	TypeSessionSignedOut   Type = "session.signed_out"
	TypeTenantCreated      Type = "tenant.created"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
