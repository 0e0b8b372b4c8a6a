package bot

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/chorus-irc/chorus/internal/irc"
	"github.com/chorus-irc/chorus/internal/llm"
)

const (
	replyMaxTokens   = 150
	chatterMaxTokens = 100

	// chatterInstruction asks the backend for an unprompted
	// contribution to the ongoing conversation.
	chatterInstruction = "Add a relevant comment to the ongoing conversation."
)

// generateReply runs the reply pipeline off the dispatch loop: prompt
// assembly, backend call, humanizing delay, then enqueue. A backend
// failure or timeout means the persona stays silent for this trigger.
func (s *Session) generateReply(ctx context.Context, l *link, ev irc.MessageEvent) {
	select {
	case s.sem <- struct{}{}:
	default:
		s.logger.Debug("reply generation already in flight, skipping trigger", "sender", ev.Sender)
		return
	}
	defer func() { <-s.sem }()

	reply, err := s.llm.Complete(ctx, llm.Request{
		SystemPrompt: s.persona.SystemPrompt,
		Turns:        turnsFromEntries(s.history.Snapshot()),
		Temperature:  s.persona.Temperature,
		MaxTokens:    replyMaxTokens,
	})
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("reply generation failed, staying silent", "error", err)
		}
		return
	}

	// A small random delay reads more naturally than an instant reply.
	if !sleepCtx(ctx, s.jitterFn()) {
		return
	}

	target := ev.Target
	if !irc.IsChannel(target) {
		target = ev.Sender
	}
	s.deliver(l, target, reply)
}

// chatterLoop periodically posts an unprompted comment while a
// conversation is ongoing. Errors are silent; the loop just waits for
// the next tick.
func (s *Session) chatterLoop(ctx context.Context, l *link) {
	for {
		if !sleepCtx(ctx, s.chatterFn()) {
			return
		}
		if s.history.Len() == 0 {
			continue
		}

		temperature := s.persona.Temperature + 0.1
		if temperature > 0.9 {
			temperature = 0.9
		}
		thought, err := s.llm.Complete(ctx, llm.Request{
			SystemPrompt: s.persona.SystemPrompt,
			Turns:        turnsFromEntries(s.history.Tail(5)),
			Instruction:  chatterInstruction,
			Temperature:  temperature,
			MaxTokens:    chatterMaxTokens,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Debug("idle chatter failed", "error", err)
			// Back off so a broken backend is not hammered.
			if !sleepCtx(ctx, time.Minute) {
				return
			}
			continue
		}
		if len(strings.TrimSpace(thought)) <= 5 {
			continue
		}
		s.deliver(l, s.cfg.Channel, thought)
	}
}

// deliver splits text into protocol-sized lines and enqueues them,
// unless the connection has been superseded since generation started.
func (s *Session) deliver(l *link, target, text string) {
	if s.epoch.Load() != l.epoch {
		s.logger.Debug("discarding reply for superseded connection")
		return
	}
	for _, chunk := range irc.SplitText(text, maxPrivmsgText) {
		l.queue.Enqueue(irc.Privmsg(target, chunk))
	}
	s.history.Add(ContextEntry{Sender: s.currentNick(), Text: text, At: time.Now(), Self: true})
	s.record(target, s.currentNick(), text, true)
}

func turnsFromEntries(entries []ContextEntry) []llm.Turn {
	turns := make([]llm.Turn, len(entries))
	for i, e := range entries {
		turns[i] = llm.Turn{Sender: e.Sender, Text: e.Text, Self: e.Self}
	}
	return turns
}

// humanDelay returns 1-3s of reply jitter.
func humanDelay() time.Duration {
	return time.Second + time.Duration(rand.Float64()*2*float64(time.Second))
}

// chatterDelay returns 20-60s between unprompted comments.
func chatterDelay() time.Duration {
	return 20*time.Second + time.Duration(rand.Float64()*40*float64(time.Second))
}

// sleepCtx sleeps for d, returning false if ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
