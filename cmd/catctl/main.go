// Command catctl talks to a backend from the shell: it reports its status,
// lists memory collections and plugins, uploads documents and chats with an
// agent.
package main

import (
	"bufio"
	"os"

	"github.com/mitchellh/cli"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], &cli.BasicUi{
		Reader:      bufio.NewReader(os.Stdin),
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}))
}

func run(args []string, ui cli.Ui) int {
	c := &cli.CLI{
		Name:     "catctl",
		Args:     args,
		Version:  version,
		Commands: commands(ui),
	}
	code, err := c.Run()
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	return code
}

func commands(ui cli.Ui) map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"status": func() (cli.Command, error) {
			return newStatusCommand(ui), nil
		},
		"collections": func() (cli.Command, error) {
			return newCollectionsCommand(ui), nil
		},
		"plugins": func() (cli.Command, error) {
			return newPluginsCommand(ui), nil
		},
		"upload": func() (cli.Command, error) {
			return newUploadCommand(ui), nil
		},
		"chat": func() (cli.Command, error) {
			return newChatCommand(ui), nil
		},
	}
}
