// Package irc implements the client-side subset of the IRC wire
// protocol: parsing inbound lines into messages and typed events, and
// serializing outbound commands. Everything here is pure; connection
// handling lives in the bot package.
package irc

import (
	"errors"
	"fmt"
	"strings"
)

// MaxLineLen is the protocol frame budget including the trailing CRLF
// (RFC 1459 section 2.3).
const MaxLineLen = 512

var (
	// ErrMalformedLine indicates a line that does not parse as an IRC
	// message. The caller should skip the frame, not drop the stream.
	ErrMalformedLine = errors.New("malformed irc line")

	// ErrFrameTooLarge indicates a line exceeding the reader's frame
	// budget. The oversized frame is discarded.
	ErrFrameTooLarge = errors.New("irc frame too large")
)

// Message is one parsed IRC protocol message.
type Message struct {
	Prefix  string   // sender prefix without the leading ':', may be empty
	Command string   // verb or three-digit numeric
	Params  []string // middle params plus the trailing param, if any
}

// ParseMessage parses a single line (without line terminator).
func ParseMessage(line string) (Message, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return Message{}, fmt.Errorf("%w: empty line", ErrMalformedLine)
	}

	var msg Message
	rest := line

	if strings.HasPrefix(rest, ":") {
		prefix, remainder, ok := strings.Cut(rest[1:], " ")
		if !ok || prefix == "" {
			return Message{}, fmt.Errorf("%w: prefix without command: %q", ErrMalformedLine, line)
		}
		msg.Prefix = prefix
		rest = remainder
	}

	// Trailing param: everything after " :" is one parameter, spaces
	// included.
	var trailing string
	hasTrailing := false
	if strings.HasPrefix(rest, ":") {
		trailing = rest[1:]
		hasTrailing = true
		rest = ""
	} else if head, tail, ok := strings.Cut(rest, " :"); ok {
		trailing = tail
		hasTrailing = true
		rest = head
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return Message{}, fmt.Errorf("%w: missing command: %q", ErrMalformedLine, line)
	}
	msg.Command = strings.ToUpper(fields[0])
	msg.Params = fields[1:]
	if hasTrailing {
		msg.Params = append(msg.Params, trailing)
	}
	return msg, nil
}

// Nick extracts the sender nickname from the message prefix.
// Returns an empty string for server prefixes without a nick part.
func (m Message) Nick() string {
	nick, _, _ := strings.Cut(m.Prefix, "!")
	return nick
}

// Trailing returns the last parameter, which by convention carries the
// free-form text of PRIVMSG, NOTICE, and most numerics.
func (m Message) Trailing() string {
	if len(m.Params) == 0 {
		return ""
	}
	return m.Params[len(m.Params)-1]
}

// IsChannel reports whether target names a channel rather than a user.
func IsChannel(target string) bool {
	return strings.HasPrefix(target, "#") || strings.HasPrefix(target, "&")
}
