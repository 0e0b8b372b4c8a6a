package irc

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want Message
	}{
		{
			name: "ping with trailing token",
			line: "PING :irc.example.net",
			want: Message{Command: "PING", Params: []string{"irc.example.net"}},
		},
		{
			name: "privmsg to channel",
			line: ":han!~han@cantina PRIVMSG #cantina :hello there",
			want: Message{
				Prefix:  "han!~han@cantina",
				Command: "PRIVMSG",
				Params:  []string{"#cantina", "hello there"},
			},
		},
		{
			name: "numeric welcome",
			line: ":irc.example.net 001 R2D2 :Welcome to the network",
			want: Message{
				Prefix:  "irc.example.net",
				Command: "001",
				Params:  []string{"R2D2", "Welcome to the network"},
			},
		},
		{
			name: "nick in use",
			line: ":irc.example.net 433 * R2D2 :Nickname is already in use",
			want: Message{
				Prefix:  "irc.example.net",
				Command: "433",
				Params:  []string{"*", "R2D2", "Nickname is already in use"},
			},
		},
		{
			name: "join with trailing channel",
			line: ":R2D2!~bot@host JOIN :#cantina",
			want: Message{
				Prefix:  "R2D2!~bot@host",
				Command: "JOIN",
				Params:  []string{"#cantina"},
			},
		},
		{
			name: "lowercase command is normalized",
			line: "ping :tok",
			want: Message{Command: "PING", Params: []string{"tok"}},
		},
		{
			name: "trailing carriage return stripped",
			line: "PING :tok\r",
			want: Message{Command: "PING", Params: []string{"tok"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseMessage(tt.line)
			if err != nil {
				t.Fatalf("ParseMessage(%q) error: %v", tt.line, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseMessage(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseMessageMalformed(t *testing.T) {
	t.Parallel()

	for _, line := range []string{"", "   ", ":prefixonly", ": "} {
		if _, err := ParseMessage(line); !errors.Is(err, ErrMalformedLine) {
			t.Errorf("ParseMessage(%q) error = %v, want ErrMalformedLine", line, err)
		}
	}
}

func TestMessageNick(t *testing.T) {
	t.Parallel()

	msg, err := ParseMessage(":leia!~leia@rebel.base PRIVMSG #cantina :help")
	if err != nil {
		t.Fatalf("ParseMessage error: %v", err)
	}
	if got := msg.Nick(); got != "leia" {
		t.Errorf("Nick() = %q, want %q", got, "leia")
	}
}

func TestCommandSerialization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		got  string
		want string
	}{
		{Pass("secret"), "PASS secret"},
		{Nick("R2D2"), "NICK R2D2"},
		{User("R2D2", "AI Bot"), "USER R2D2 0 * :AI Bot"},
		{Join("#cantina"), "JOIN #cantina"},
		{Privmsg("#cantina", "beep boop"), "PRIVMSG #cantina :beep boop"},
		{Privmsg("#cantina", "two\nlines"), "PRIVMSG #cantina :two lines"},
		{Pong("tok-1"), "PONG :tok-1"},
		{Ping("tok-2"), "PING :tok-2"},
		{Quit("bye"), "QUIT :bye"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("serialized %q, want %q", tt.got, tt.want)
		}
	}
}

func TestDecodeEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want Event
	}{
		{"ping", "PING :abc", PingEvent{Token: "abc"}},
		{"welcome", ":srv 001 R2D2 :Welcome", WelcomeEvent{Text: "Welcome"}},
		{"nick in use", ":srv 433 * R2D2 :Nickname is already in use", NickInUseEvent{Tried: "R2D2"}},
		{"join", ":R2D2!~b@h JOIN :#cantina", JoinedEvent{Nick: "R2D2", Channel: "#cantina"}},
		{
			"privmsg",
			":han!~h@h PRIVMSG #cantina :hello",
			MessageEvent{Sender: "han", Target: "#cantina", Text: "hello"},
		},
		{"notice", ":srv NOTICE * :Looking up your hostname", NoticeEvent{Sender: "srv", Text: "Looking up your hostname"}},
		{"server error", "ERROR :Closing Link", ServerErrorEvent{Reason: "Closing Link"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg, err := ParseMessage(tt.line)
			if err != nil {
				t.Fatalf("ParseMessage error: %v", err)
			}
			got, ok := DecodeEvent(msg)
			if !ok {
				t.Fatalf("DecodeEvent(%q) not recognized", tt.line)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeEvent(%q) = %#v, want %#v", tt.line, got, tt.want)
			}
		})
	}
}

func TestDecodeEventIgnoresUninterestingCommands(t *testing.T) {
	t.Parallel()

	for _, line := range []string{
		":srv 372 R2D2 :- motd line",
		":srv MODE #cantina +nt",
		":han!~h@h PART #cantina :gone",
	} {
		msg, err := ParseMessage(line)
		if err != nil {
			t.Fatalf("ParseMessage(%q) error: %v", line, err)
		}
		if ev, ok := DecodeEvent(msg); ok {
			t.Errorf("DecodeEvent(%q) = %#v, want ignored", line, ev)
		}
	}
}

func TestIsChannel(t *testing.T) {
	t.Parallel()

	if !IsChannel("#cantina") || !IsChannel("&local") {
		t.Error("expected channel targets to be recognized")
	}
	if IsChannel("R2D2") {
		t.Error("expected nick target to not be a channel")
	}
}
