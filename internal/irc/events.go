package irc

// Numeric replies the client cares about.
const (
	numericWelcome   = "001"
	numericNickInUse = "433"
)

// Event is a typed protocol event produced by DecodeEvent and consumed
// exactly once by the session dispatch loop.
type Event interface {
	eventName() string
}

// PingEvent is a server keepalive probe. The token must be echoed back
// immediately in a PONG.
type PingEvent struct {
	Token string
}

// WelcomeEvent signals successful registration (numeric 001).
type WelcomeEvent struct {
	Text string
}

// NickInUseEvent signals a nickname collision during registration
// (numeric 433).
type NickInUseEvent struct {
	Tried string
}

// JoinedEvent confirms a JOIN. Nick is who joined; registration is
// confirmed for us when it matches the session's own nickname.
type JoinedEvent struct {
	Nick    string
	Channel string
}

// MessageEvent is a PRIVMSG addressed to a channel or to the client.
type MessageEvent struct {
	Sender string
	Target string
	Text   string
}

// NoticeEvent is a server or user NOTICE. Never replied to.
type NoticeEvent struct {
	Sender string
	Text   string
}

// ServerErrorEvent is an ERROR command; the server is closing the link.
type ServerErrorEvent struct {
	Reason string
}

func (PingEvent) eventName() string        { return "ping" }
func (WelcomeEvent) eventName() string     { return "welcome" }
func (NickInUseEvent) eventName() string   { return "nick_in_use" }
func (JoinedEvent) eventName() string      { return "joined" }
func (MessageEvent) eventName() string     { return "message" }
func (NoticeEvent) eventName() string      { return "notice" }
func (ServerErrorEvent) eventName() string { return "server_error" }

// DecodeEvent maps a parsed message to a typed event. Messages the
// client has no use for (MOTD numerics, mode changes, parts) decode to
// a nil event and ok=false.
func DecodeEvent(msg Message) (Event, bool) {
	switch msg.Command {
	case "PING":
		return PingEvent{Token: msg.Trailing()}, true
	case numericWelcome:
		return WelcomeEvent{Text: msg.Trailing()}, true
	case numericNickInUse:
		// 433 params: <client> <tried nick> :Nickname is already in use
		tried := ""
		if len(msg.Params) >= 2 {
			tried = msg.Params[len(msg.Params)-2]
		}
		return NickInUseEvent{Tried: tried}, true
	case "JOIN":
		if len(msg.Params) == 0 {
			return nil, false
		}
		return JoinedEvent{Nick: msg.Nick(), Channel: msg.Params[len(msg.Params)-1]}, true
	case "PRIVMSG":
		if len(msg.Params) < 2 {
			return nil, false
		}
		return MessageEvent{
			Sender: msg.Nick(),
			Target: msg.Params[0],
			Text:   msg.Trailing(),
		}, true
	case "NOTICE":
		return NoticeEvent{Sender: msg.Nick(), Text: msg.Trailing()}, true
	case "ERROR":
		return ServerErrorEvent{Reason: msg.Trailing()}, true
	}
	return nil, false
}
