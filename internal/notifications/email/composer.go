// Package email composes driver-facing booking notifications and provides
// the supporting helpers for safe email logging. Rendering is template-based
// with html/template so every interpolated booking field is escaped against
// markup injection; the metadata originates from client-supplied checkout
// input and is treated as untrusted.
package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	texttemplate "text/template"

	"github.com/google/uuid"

	"ridedispatch/internal/booking"
	"ridedispatch/internal/types"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// subjectRidePaid is the fixed subject line for completed-ride notifications.
const subjectRidePaid = "New ride paid ✅"

// Quick-action SMS bodies offered to the driver. Deployment constants, not
// runtime input.
const (
	acceptMessageBody = "Hello, this is your driver.\n" +
		"I confirm that your ride has been accepted.\n" +
		"If anything comes up you can reach me at this number."

	declineMessageBody = "Hello, this is your driver.\n" +
		"I am sorry to tell you that I will not be able to take your ride.\n" +
		"You will be refunded shortly.\n" +
		"Kind regards."
)

// quickReplyTemplates are the labelled SMS bodies rendered as action buttons.
func quickReplyTemplates() []booking.MessageTemplate {
	return []booking.MessageTemplate{
		{Label: "Confirm the ride", Body: acceptMessageBody},
		{Label: "Decline the ride", Body: declineMessageBody},
	}
}

// templateData is the struct passed into the rich and plain templates.
//
// The action URLs are typed template.URL because tel: and sms: are outside
// html/template's URL allowlist and would otherwise be neutralized. This is
// safe only because the values are built from a normalized phone number
// (digits and a leading "+") and a percent-encoded body, never raw input.
type templateData struct {
	DriverName     string
	CustomerName   string
	CustomerPhone  string
	PickupAddress  string
	DropoffAddress string
	Date           string
	Time           string
	Vehicle        string
	Price          string

	HasPhone   bool
	CallURL    template.URL
	AcceptURL  template.URL
	DeclineURL template.URL
}

// Composer assembles exactly one Notification per validated booking. The
// body shape (rich HTML or plain text) is a fixed choice per deployment,
// selected by configuration. The composer performs no I/O and cannot fail
// except on programmer error.
type Composer struct {
	format types.BodyFormat
	sender types.SenderIdentity
	html   *template.Template
	text   *texttemplate.Template
}

// ComposerConfig holds the parameters needed to construct a Composer.
type ComposerConfig struct {
	Format        types.BodyFormat
	SenderAddress string
	SenderName    string
}

// NewComposer parses the embedded templates and returns a Composer.
// Returns an error if any template fails to parse.
func NewComposer(cfg ComposerConfig) (*Composer, error) {
	htmlTmpl, err := template.ParseFS(templateFS, "templates/ride_paid.html")
	if err != nil {
		return nil, fmt.Errorf("composer: failed to parse ride_paid.html: %w", err)
	}
	textTmpl, err := texttemplate.ParseFS(templateFS, "templates/ride_paid.txt")
	if err != nil {
		return nil, fmt.Errorf("composer: failed to parse ride_paid.txt: %w", err)
	}

	format := cfg.Format
	if format == "" {
		format = types.BodyFormatRich
	}

	return &Composer{
		format: format,
		sender: types.SenderIdentity{Address: cfg.SenderAddress, Name: cfg.SenderName},
		html:   htmlTmpl,
		text:   textTmpl,
	}, nil
}

// Compose assembles the notification for a paid booking. The customer phone
// is normalized and, when non-empty, turned into call/SMS quick actions;
// otherwise the templates render an invalid-phone fallback line.
func (c *Composer) Compose(b types.Booking, driver types.DriverIdentity) (*types.Notification, error) {
	phone := booking.NormalizePhone(b.CustomerPhone)
	links := booking.BuildActionLinks(phone, quickReplyTemplates())

	data := templateData{
		DriverName:     driver.Name,
		CustomerName:   b.CustomerName,
		CustomerPhone:  b.CustomerPhone,
		PickupAddress:  b.PickupAddress,
		DropoffAddress: b.DropoffAddress,
		Date:           b.Date,
		Time:           b.Time,
		Vehicle:        b.Vehicle,
		Price:          b.Price,
		HasPhone:       links.HasPhone(),
		CallURL:        template.URL(links.Call),
	}
	for i, msg := range links.Messages {
		switch i {
		case 0:
			data.AcceptURL = template.URL(msg.URL)
		case 1:
			data.DeclineURL = template.URL(msg.URL)
		}
	}

	n := &types.Notification{
		To:          driver.Email,
		ToName:      driver.Name,
		From:        c.sender,
		Subject:     subjectRidePaid,
		Format:      c.format,
		ReferenceID: uuid.NewString(),
	}

	var buf bytes.Buffer
	switch c.format {
	case types.BodyFormatPlain:
		if err := c.text.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("composer: failed to render plain body: %w", err)
		}
		n.BodyText = buf.String()
	default:
		if err := c.html.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("composer: failed to render rich body: %w", err)
		}
		n.BodyHTML = buf.String()
	}

	return n, nil
}
