// Package persona holds the read-only character definition a session
// presents: nickname, system prompt, and response-style parameters.
// A Persona is built once at startup and shared by reference across
// reconnects of the same bot.
package persona

import (
	"fmt"
	"os"
	"strings"

	"github.com/chorus-irc/chorus/internal/config"
)

// Persona is one bot character. Immutable after FromConfig.
type Persona struct {
	// Name identifies the persona in logs and status output. Usually
	// equals Nick.
	Name string

	// Nick is the preferred IRC nickname. The session may mutate its
	// working nickname on collision; the persona keeps the original.
	Nick string

	// SystemPrompt is the character instruction sent as the system
	// message of every backend request.
	SystemPrompt string

	// Model names the backend model.
	Model string

	// Temperature is the sampling temperature for replies.
	Temperature float64

	// ReplyToAll makes the persona respond to general channel chatter,
	// not only mentions and direct messages.
	ReplyToAll bool

	// Chatter enables periodic unprompted comments while a
	// conversation is ongoing.
	Chatter bool

	// Teammates lists sibling bot nicknames. A general-chatter reply
	// is suppressed when the message names a teammate, so bots do not
	// pile onto messages addressed to each other.
	Teammates []string
}

// FromConfig builds the persona described by one validated bot
// configuration, resolving the prompt value.
func FromConfig(cfg *config.Bot) (*Persona, error) {
	prompt, err := LoadPrompt(cfg.Prompt)
	if err != nil {
		return nil, fmt.Errorf("persona %s: %w", cfg.Nick, err)
	}
	return &Persona{
		Name:         cfg.Nick,
		Nick:         cfg.Nick,
		SystemPrompt: prompt,
		Model:        cfg.Model,
		Temperature:  cfg.Temperature,
		ReplyToAll:   cfg.ReplyToAll == nil || *cfg.ReplyToAll,
		Chatter:      cfg.Chatter == nil || *cfg.Chatter,
		Teammates:    cfg.Teammates,
	}, nil
}

// LoadPrompt resolves a prompt value the way the bot configs spell it:
// a path to a prompt file, or the prompt text itself inline.
func LoadPrompt(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("prompt is empty")
	}
	if info, err := os.Stat(value); err == nil && !info.IsDir() {
		data, err := os.ReadFile(value)
		if err != nil {
			return "", fmt.Errorf("read prompt file %s: %w", value, err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			return "", fmt.Errorf("prompt file %s is empty", value)
		}
		return text, nil
	}
	return value, nil
}

// IsTeammate reports whether nick belongs to a sibling bot.
func (p *Persona) IsTeammate(nick string) bool {
	for _, mate := range p.Teammates {
		if strings.EqualFold(mate, nick) {
			return true
		}
	}
	return false
}
