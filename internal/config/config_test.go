package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, "r2d2.yml", `
nick: R2D2
channel: "#cantina"
prompt: "You are R2D2."
`)

	bot, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if bot.Host != "localhost" || bot.Port != DefaultPort {
		t.Errorf("connection defaults = %s:%d, want localhost:%d", bot.Host, bot.Port, DefaultPort)
	}
	if bot.Model != DefaultModel {
		t.Errorf("model = %q, want %q", bot.Model, DefaultModel)
	}
	if bot.Temperature != DefaultTemperature {
		t.Errorf("temperature = %v, want %v", bot.Temperature, DefaultTemperature)
	}
	if bot.HistorySize != DefaultHistorySize {
		t.Errorf("history = %d, want %d", bot.HistorySize, DefaultHistorySize)
	}
	if bot.ReplyToAll == nil || !*bot.ReplyToAll {
		t.Error("reply_to_all should default to true")
	}
	if bot.Chatter == nil || !*bot.Chatter {
		t.Error("chatter should default to true")
	}
}

func TestLoadExplicitValues(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, "leia.yml", `
nick: Leia
channel: "#cantina"
host: irc.rebellion.example
port: 6697
tls: true
password: hoth
llm_node: http://10.0.0.5:11434/v1
model: llama3.2:7b
temperature: 0.4
prompt: "You are Leia."
reply_to_all: false
chatter: false
history: 20
max_reconnects: 5
`)

	bot, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bot.TLS || bot.Port != 6697 || bot.Password != "hoth" {
		t.Errorf("connection settings not honored: %+v", bot)
	}
	if *bot.ReplyToAll || *bot.Chatter {
		t.Error("explicit false flags were overridden by defaults")
	}
	if bot.HistorySize != 20 || bot.MaxReconnects != 5 {
		t.Errorf("history/max_reconnects = %d/%d, want 20/5", bot.HistorySize, bot.MaxReconnects)
	}
}

func TestLoadValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing nick", "channel: \"#c\"\nprompt: p\n", "nick"},
		{"missing channel", "nick: n\nprompt: p\n", "channel"},
		{"bad channel", "nick: n\nchannel: cantina\nprompt: p\n", "must start with"},
		{"missing prompt", "nick: n\nchannel: \"#c\"\n", "prompt"},
		{"bad port", "nick: n\nchannel: \"#c\"\nprompt: p\nport: 70000\n", "port"},
		{"bad temperature", "nick: n\nchannel: \"#c\"\nprompt: p\ntemperature: 3.5\n", "temperature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			path := writeConfig(t, dir, "bot.yml", tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadTeamPopulatesTeammates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "c3po.yml", "nick: C3PO\nchannel: \"#cantina\"\nprompt: p\n")
	writeConfig(t, dir, "r2d2.yml", "nick: R2D2\nchannel: \"#cantina\"\nprompt: p\n")
	writeConfig(t, dir, "notes.txt", "not a config")

	bots, err := LoadTeam([]string{dir})
	if err != nil {
		t.Fatalf("LoadTeam: %v", err)
	}
	if len(bots) != 2 {
		t.Fatalf("loaded %d bots, want 2", len(bots))
	}
	// Sorted by filename: c3po first.
	if bots[0].Nick != "C3PO" || bots[1].Nick != "R2D2" {
		t.Fatalf("unexpected order: %s, %s", bots[0].Nick, bots[1].Nick)
	}
	if len(bots[0].Teammates) != 1 || bots[0].Teammates[0] != "R2D2" {
		t.Errorf("C3PO teammates = %v, want [R2D2]", bots[0].Teammates)
	}
	if len(bots[1].Teammates) != 1 || bots[1].Teammates[0] != "C3PO" {
		t.Errorf("R2D2 teammates = %v, want [C3PO]", bots[1].Teammates)
	}
}

func TestLoadTeamRejectsEmptyDir(t *testing.T) {
	t.Parallel()

	if _, err := LoadTeam([]string{t.TempDir()}); err == nil {
		t.Error("expected error for directory without configs")
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	settings := LoadSettings()
	if settings.SendInterval != 2*time.Second {
		t.Errorf("SendInterval = %v, want 2s", settings.SendInterval)
	}
	if settings.SendQueueSize != 32 {
		t.Errorf("SendQueueSize = %d, want 32", settings.SendQueueSize)
	}
	if settings.LLMTimeout != 60*time.Second {
		t.Errorf("LLMTimeout = %v, want 60s", settings.LLMTimeout)
	}
}

func TestGetEnvDurationBareSeconds(t *testing.T) {
	t.Setenv("CHORUS_TEST_DURATION", "90")
	if d := getEnvDuration("CHORUS_TEST_DURATION", time.Second); d != 90*time.Second {
		t.Errorf("bare-second duration = %v, want 90s", d)
	}
	t.Setenv("CHORUS_TEST_DURATION", "250ms")
	if d := getEnvDuration("CHORUS_TEST_DURATION", time.Second); d != 250*time.Millisecond {
		t.Errorf("duration = %v, want 250ms", d)
	}
}
