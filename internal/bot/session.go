package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chorus-irc/chorus/internal/config"
	"github.com/chorus-irc/chorus/internal/irc"
	"github.com/chorus-irc/chorus/internal/llm"
	"github.com/chorus-irc/chorus/internal/persona"
	"github.com/chorus-irc/chorus/internal/transport"
)

// State is the session's protocol phase.
type State int32

// Session states. Any fatal I/O error returns the session to
// StateDisconnected regardless of the prior state.
const (
	StateDisconnected State = iota
	StateConnecting
	StateRegistering
	StateJoining
	StateActive
)

// String implements fmt.Stringer for logs and the status API.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateRegistering:
		return "registering"
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	}
	return "unknown"
}

var (
	errRegistrationTimeout = errors.New("no registration confirmation within deadline")
	errJoinTimeout         = errors.New("no join confirmation within deadline")
	errServerClosing       = errors.New("server closed the link")
)

// Session timing defaults.
const (
	defaultRegisterTimeout = 30 * time.Second
	defaultJoinTimeout     = 30 * time.Second
	defaultIdleProbe       = 60 * time.Second
	initialBackoff         = 2 * time.Second
	maxBackoff             = 60 * time.Second
	maxNickLen             = 30
	maxPrivmsgText         = 400
)

// TranscriptFunc records one observed or sent message for the optional
// transcript archive. Implementations must not block.
type TranscriptFunc func(channel, sender, text string, outbound bool)

// Options bundles the session's collaborators and tunables.
type Options struct {
	Config    *config.Bot
	Persona   *persona.Persona
	Dialer    transport.Dialer
	Completer llm.Completer
	Logger    *slog.Logger

	// Transcript is optional; nil disables archiving.
	Transcript TranscriptFunc

	SendInterval   time.Duration
	SendQueueSize  int
	ConnectTimeout time.Duration

	// RegisterTimeout, JoinTimeout, and IdleProbe default sensibly
	// when zero; tests shrink them.
	RegisterTimeout time.Duration
	JoinTimeout     time.Duration
	IdleProbe       time.Duration
}

// Session owns one protocol connection for one persona and drives the
// state machine across reconnects. All protocol state transitions
// happen on the dispatch goroutine; reply generation is offloaded so a
// slow backend never delays keepalive handling.
type Session struct {
	cfg     *config.Bot
	persona *persona.Persona
	dialer  transport.Dialer
	llm     llm.Completer
	logger  *slog.Logger

	transcript TranscriptFunc
	history    *ConversationContext

	sendInterval    time.Duration
	sendQueueSize   int
	connectTimeout  time.Duration
	registerTimeout time.Duration
	joinTimeout     time.Duration
	idleProbe       time.Duration

	state      atomic.Int32
	reconnects atomic.Uint64

	// epoch increments per connection; in-flight reply generations
	// compare epochs before enqueueing so a stale reply is never sent
	// against a newer connection.
	epoch atomic.Uint64

	// nickMu guards the working nickname, which mutates on collision
	// and is read by the status API.
	nickMu sync.Mutex
	nick   string

	// sem caps in-flight backend calls for this session.
	sem chan struct{}

	// jitterFn and chatterFn produce the humanizing delays; tests
	// shrink them.
	jitterFn  func() time.Duration
	chatterFn func() time.Duration

	// reconnect backoff bounds; tests shrink them.
	backoffInitial time.Duration
	backoffMax     time.Duration
}

// NewSession builds a session from options. The configuration must
// already be validated.
func NewSession(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("bot", opts.Persona.Nick, "channel", opts.Config.Channel)

	s := &Session{
		cfg:             opts.Config,
		persona:         opts.Persona,
		dialer:          opts.Dialer,
		llm:             opts.Completer,
		logger:          logger,
		transcript:      opts.Transcript,
		history:         NewConversationContext(opts.Config.HistorySize),
		sendInterval:    opts.SendInterval,
		sendQueueSize:   opts.SendQueueSize,
		connectTimeout:  opts.ConnectTimeout,
		registerTimeout: opts.RegisterTimeout,
		joinTimeout:     opts.JoinTimeout,
		idleProbe:       opts.IdleProbe,
		sem:             make(chan struct{}, 1),
	}
	if s.connectTimeout <= 0 {
		s.connectTimeout = 15 * time.Second
	}
	if s.registerTimeout <= 0 {
		s.registerTimeout = defaultRegisterTimeout
	}
	if s.joinTimeout <= 0 {
		s.joinTimeout = defaultJoinTimeout
	}
	if s.idleProbe <= 0 {
		s.idleProbe = defaultIdleProbe
	}
	s.jitterFn = humanDelay
	s.chatterFn = chatterDelay
	s.backoffInitial = initialBackoff
	s.backoffMax = maxBackoff
	s.nick = opts.Persona.Nick
	return s
}

// Status is a point-in-time view of the session for the admin API.
type Status struct {
	Persona    string `json:"persona"`
	Nick       string `json:"nick"`
	Channel    string `json:"channel"`
	State      string `json:"state"`
	Reconnects uint64 `json:"reconnects"`
}

// Status reports the session's current state. Safe to call from any
// goroutine.
func (s *Session) Status() Status {
	s.nickMu.Lock()
	nick := s.nick
	s.nickMu.Unlock()
	return Status{
		Persona:    s.persona.Name,
		Nick:       nick,
		Channel:    s.cfg.Channel,
		State:      State(s.state.Load()).String(),
		Reconnects: s.reconnects.Load(),
	}
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

func (s *Session) currentState() State {
	return State(s.state.Load())
}

// Run drives the connect/serve/reconnect loop until ctx is cancelled
// or the reconnect budget is exhausted. Transport errors are always
// recoverable; only budget exhaustion returns an error.
func (s *Session) Run(ctx context.Context) error {
	backoff := s.backoffInitial
	for attempt := 1; ; attempt++ {
		reachedActive, err := s.runOnce(ctx)
		s.setState(StateDisconnected)
		if ctx.Err() != nil {
			return nil
		}
		s.reconnects.Add(1)
		if reachedActive {
			backoff = s.backoffInitial
		}

		if s.cfg.MaxReconnects > 0 && attempt >= s.cfg.MaxReconnects {
			return fmt.Errorf("reconnect budget exhausted after %d attempts: %w", attempt, err)
		}

		s.logger.Warn("disconnected, reconnecting", "error", err, "backoff", backoff, "attempt", attempt)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, s.backoffMax)
	}
}

// link bundles the per-connection moving parts handed around the
// dispatch path.
type link struct {
	queue *sendQueue
	epoch uint64
	// phase bounds the current handshake step (registration, join).
	phase *time.Timer
}

// runOnce establishes one connection and serves it until failure or
// cancellation. Returns whether the session reached Active.
func (s *Session) runOnce(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.setState(StateConnecting)
	dialCtx, dialCancel := context.WithTimeout(ctx, s.connectTimeout)
	conn, err := s.dialer.Dial(dialCtx)
	dialCancel()
	if err != nil {
		return false, err
	}
	defer conn.Close()

	epoch := s.epoch.Add(1)
	queue := newSendQueue(conn, s.sendInterval, s.sendQueueSize, s.logger)
	defer queue.Close()

	lines := make(chan string, 16)
	readErr := make(chan error, 1)
	go func() {
		reader := irc.NewLineReader(conn, irc.MaxLineLen)
		for {
			line, err := reader.ReadLine()
			if err != nil {
				if errors.Is(err, irc.ErrFrameTooLarge) {
					s.logger.Warn("oversized frame discarded")
					continue
				}
				select {
				case readErr <- err:
				case <-ctx.Done():
				}
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	s.setState(StateRegistering)
	s.setNick(s.persona.Nick)
	nickAttempts := 0

	if s.cfg.Password != "" {
		queue.Enqueue(irc.Pass(s.cfg.Password))
	}
	queue.Enqueue(irc.Nick(s.persona.Nick))
	queue.Enqueue(irc.User(s.persona.Nick, "chorus bot"))

	l := &link{
		queue: queue,
		epoch: epoch,
		phase: time.NewTimer(s.registerTimeout),
	}
	defer l.phase.Stop()

	idle := time.NewTimer(s.idleProbe)
	defer idle.Stop()

	reachedActive := false
	for {
		select {
		case <-ctx.Done():
			queue.SendNow(irc.Quit("shutting down"))
			return reachedActive, ctx.Err()

		case err := <-readErr:
			return reachedActive, fmt.Errorf("transport read: %w", err)

		case err := <-queue.Err():
			return reachedActive, fmt.Errorf("transport write: %w", err)

		case <-l.phase.C:
			switch s.currentState() {
			case StateRegistering:
				return reachedActive, errRegistrationTimeout
			case StateJoining:
				return reachedActive, errJoinTimeout
			}

		case <-idle.C:
			// Nothing read for a while: probe the link. A dead peer
			// surfaces as a read error shortly after.
			queue.SendNow(irc.Ping(strconv.FormatInt(time.Now().Unix(), 10)))
			idle.Reset(s.idleProbe)

		case line := <-lines:
			idle.Reset(s.idleProbe)
			active, err := s.handleLine(ctx, l, line, &nickAttempts)
			if err != nil {
				return reachedActive, err
			}
			if active {
				reachedActive = true
			}
		}
	}
}

// handleLine parses and dispatches one inbound line. Returns
// active=true once the session has reached StateActive. A non-nil
// error tears the connection down.
func (s *Session) handleLine(ctx context.Context, l *link, line string, nickAttempts *int) (bool, error) {
	msg, err := irc.ParseMessage(line)
	if err != nil {
		// Protocol parse errors are recoverable: log and skip.
		s.logger.Debug("skipping malformed line", "line", line, "error", err)
		return false, nil
	}
	event, ok := irc.DecodeEvent(msg)
	if !ok {
		return false, nil
	}

	switch ev := event.(type) {
	case irc.PingEvent:
		// Keepalive latency is protocol-critical: bypass the queue.
		l.queue.SendNow(irc.Pong(ev.Token))

	case irc.WelcomeEvent:
		if s.currentState() != StateRegistering {
			s.logger.Warn("unexpected registration confirmation", "state", s.currentState().String())
			return false, nil
		}
		s.logger.Info("registered, joining channel")
		s.setState(StateJoining)
		l.queue.Enqueue(irc.Join(s.cfg.Channel))
		resetTimer(l.phase, s.joinTimeout)

	case irc.NickInUseEvent:
		if s.currentState() != StateRegistering {
			return false, nil
		}
		*nickAttempts++
		next := mutateNick(s.persona.Nick, *nickAttempts)
		s.logger.Info("nickname collision, retrying registration", "tried", ev.Tried, "next", next)
		s.setNick(next)
		l.queue.Enqueue(irc.Nick(next))
		resetTimer(l.phase, s.registerTimeout)

	case irc.JoinedEvent:
		if s.currentState() != StateJoining {
			s.logger.Debug("join event outside joining state", "nick", ev.Nick, "state", s.currentState().String())
			return false, nil
		}
		if !strings.EqualFold(ev.Nick, s.currentNick()) || !strings.EqualFold(ev.Channel, s.cfg.Channel) {
			return false, nil
		}
		s.logger.Info("joined channel")
		s.setState(StateActive)
		l.phase.Stop()
		l.queue.Enqueue(irc.Privmsg(s.cfg.Channel, s.currentNick()+" reporting in!"))
		if s.persona.Chatter {
			go s.chatterLoop(ctx, l)
		}
		return true, nil

	case irc.MessageEvent:
		if s.currentState() == StateActive {
			s.handleMessage(ctx, l, ev)
		}

	case irc.NoticeEvent:
		s.logger.Debug("notice", "from", ev.Sender, "text", ev.Text)

	case irc.ServerErrorEvent:
		return false, fmt.Errorf("%w: %s", errServerClosing, ev.Reason)
	}
	return false, nil
}

// handleMessage updates conversation context and, when triggered,
// offloads reply generation.
func (s *Session) handleMessage(ctx context.Context, l *link, ev irc.MessageEvent) {
	nick := s.currentNick()

	// The bot's own messages echoed back by the server are neither
	// recorded nor answered.
	if strings.EqualFold(ev.Sender, nick) || strings.EqualFold(ev.Sender, s.persona.Nick) {
		return
	}

	s.history.Add(ContextEntry{Sender: ev.Sender, Text: ev.Text, At: time.Now()})
	s.record(ev.Target, ev.Sender, ev.Text, false)

	if !ShouldRespond(s.persona, nick, ev) {
		return
	}
	go s.generateReply(ctx, l, ev)
}

func (s *Session) record(channel, sender, text string, outbound bool) {
	if s.transcript != nil {
		s.transcript(channel, sender, text, outbound)
	}
}

func (s *Session) currentNick() string {
	s.nickMu.Lock()
	defer s.nickMu.Unlock()
	return s.nick
}

func (s *Session) setNick(nick string) {
	s.nickMu.Lock()
	s.nick = nick
	s.nickMu.Unlock()
}

// mutateNick derives a deterministic fallback nickname for collision
// attempt n: nick_, nick_2, nick_3, ...
func mutateNick(base string, attempt int) string {
	suffix := "_"
	if attempt > 1 {
		suffix = "_" + strconv.Itoa(attempt)
	}
	if len(base)+len(suffix) > maxNickLen {
		base = base[:maxNickLen-len(suffix)]
	}
	return base + suffix
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
