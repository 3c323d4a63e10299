package booking

import (
	"net/url"
	"strings"
)

// MessageTemplate is a labelled SMS body to be offered as a quick action.
type MessageTemplate struct {
	Label string
	Body  string
}

// ActionLink is a ready-to-use deep link paired with its display label.
type ActionLink struct {
	Label string
	URL   string
}

// ActionLinks holds the communication actions derived from a normalized
// phone number. The zero value means "no phone available"; the composer
// renders a human-readable fallback in that case.
type ActionLinks struct {
	Call     string
	Messages []ActionLink
}

// HasPhone reports whether any action could be derived.
func (l ActionLinks) HasPhone() bool {
	return l.Call != ""
}

// BuildActionLinks derives the dial action and one pre-filled message action
// per template from a normalized phone number. An empty phone yields the
// zero value: links are only ever constructed from a non-empty normalized
// number. Pure string construction, no I/O.
func BuildActionLinks(phone string, templates []MessageTemplate) ActionLinks {
	if phone == "" {
		return ActionLinks{}
	}

	links := ActionLinks{Call: CallLink(phone)}
	for _, t := range templates {
		links.Messages = append(links.Messages, ActionLink{
			Label: t.Label,
			URL:   MessageLink(phone, t.Body),
		})
	}
	return links
}

// CallLink builds a tel: dial link for the given normalized phone number.
func CallLink(phone string) string {
	return "tel:" + phone
}

// MessageLink builds a single-string sms: link embedding the phone and a
// percent-encoded message body. The "?&body=" delimiter is the one form
// both major mobile platforms' message composers accept from a single link.
// The body is encoded before embedding, so Unicode, line breaks, "&" and
// punctuation survive the round trip intact.
func MessageLink(phone string, body string) string {
	return "sms:" + phone + "?&body=" + encodeMessageBody(body)
}

// encodeMessageBody percent-encodes an SMS body for embedding in an sms:
// link. url.QueryEscape encodes spaces as "+", which message composers
// would display literally, so spaces are rewritten to %20.
func encodeMessageBody(body string) string {
	return strings.ReplaceAll(url.QueryEscape(body), "+", "%20")
}
