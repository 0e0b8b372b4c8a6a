package irc

import "strings"

// Command constructors below serialize client commands to raw lines
// without the CRLF terminator. Serialization is pure; the send queue
// owns framing and pacing.

// Pass serializes the connection password command.
func Pass(password string) string {
	return "PASS " + password
}

// Nick serializes a nickname request.
func Nick(nick string) string {
	return "NICK " + nick
}

// User serializes the USER registration command.
func User(username, realname string) string {
	return "USER " + username + " 0 * :" + realname
}

// Join serializes a channel join request.
func Join(channel string) string {
	return "JOIN " + channel
}

// Privmsg serializes a chat message to a channel or user. Embedded
// line breaks would smuggle extra commands into the stream, so they
// are flattened to spaces.
func Privmsg(target, text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	return "PRIVMSG " + target + " :" + text
}

// Pong serializes the keepalive response for a server PING token.
func Pong(token string) string {
	return "PONG :" + token
}

// Ping serializes a client-initiated keepalive probe.
func Ping(token string) string {
	return "PING :" + token
}

// Quit serializes the connection farewell.
func Quit(reason string) string {
	return "QUIT :" + reason
}
