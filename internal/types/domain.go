package types

// Booking holds the validated booking fields extracted from a completed
// checkout session's metadata bag. All values originate from client-supplied
// checkout input echoed back by the payment provider, so they are untrusted
// text until escaped at render time. A Booking is never mutated after
// construction.
type Booking struct {
	CustomerName   string
	CustomerPhone  string
	PickupAddress  string
	DropoffAddress string
	Date           string
	Time           string
	Vehicle        string
	Price          string
}

// DriverIdentity is the resolved recipient of a booking notification.
type DriverIdentity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SenderIdentity is the From address and display name used on outbound email.
type SenderIdentity struct {
	Address string
	Name    string
}

// BodyFormat enumerates the two supported notification body shapes.
// The format is a deployment-time choice (EMAIL_FORMAT), not inferred
// from input.
type BodyFormat string

const (
	// BodyFormatRich produces an HTML body with clickable action buttons
	// and a structured booking summary.
	BodyFormatRich BodyFormat = "rich"
	// BodyFormatPlain produces a line-oriented text summary ending with a
	// call-to-action sentence.
	BodyFormatPlain BodyFormat = "plain"
)

// Notification is the fully composed message handed to the email provider.
// It is constructed exactly once per verified, completed, valid event and
// dispatched at most once; it is never persisted or reused.
type Notification struct {
	To          string
	ToName      string
	From        SenderIdentity
	Subject     string
	BodyHTML    string
	BodyText    string
	Format      BodyFormat
	ReferenceID string
}
