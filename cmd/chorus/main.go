// Chorus - a team of IRC chat bots with language-model personas.
package main

import "github.com/chorus-irc/chorus/internal/cli"

func main() {
	cli.Execute()
}
