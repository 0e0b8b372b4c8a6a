package bot

import (
	"strings"

	"github.com/chorus-irc/chorus/internal/irc"
	"github.com/chorus-irc/chorus/internal/persona"
)

// ShouldRespond decides whether this persona answers an inbound
// message. Pure function of the message, the persona, and the
// session's current nickname. Each persona's session evaluates
// independently; overlapping replies across personas are allowed.
func ShouldRespond(p *persona.Persona, sessionNick string, ev irc.MessageEvent) bool {
	// Self-echo suppression by sender identity, both the working nick
	// and the configured one (a collision-mutated session must still
	// recognize messages sent under either).
	if strings.EqualFold(ev.Sender, sessionNick) || strings.EqualFold(ev.Sender, p.Nick) {
		return false
	}

	// Direct messages always get a reply.
	if !irc.IsChannel(ev.Target) {
		return true
	}

	text := strings.ToLower(ev.Text)
	if strings.Contains(text, strings.ToLower(sessionNick)) ||
		strings.Contains(text, strings.ToLower(p.Nick)) {
		return true
	}

	if !p.ReplyToAll {
		return false
	}
	// General chatter: stay quiet when the message names a teammate,
	// since it is addressed to them.
	for _, mate := range p.Teammates {
		if strings.Contains(text, strings.ToLower(mate)) {
			return false
		}
	}
	return true
}
