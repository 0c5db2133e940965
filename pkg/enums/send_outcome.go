package enums

// SendOutcome describes what happened to one recipient within a send batch.
type SendOutcome string

const (
	// SendOutcomeSent means the email went out and the send record was stored.
	SendOutcomeSent SendOutcome = "sent"
	// SendOutcomeFailed means nothing was delivered and no token was persisted.
	SendOutcomeFailed SendOutcome = "failed"
	// SendOutcomeUnrecorded means the email went out but the send record write failed,
	// leaving the delivered link unresolvable.
	SendOutcomeUnrecorded SendOutcome = "unrecorded"
)

// Delivered reports whether the transport accepted the message.
func (o SendOutcome) Delivered() bool {
	return o == SendOutcomeSent || o == SendOutcomeUnrecorded
}
