package main

import (
	"fmt"
	"os"

	"github.com/mwantia/sessionbrowser/cmd/sessionbrowser/cli"
	"github.com/mwantia/sessionbrowser/cmd/sessionbrowser/cli/client"
	"github.com/mwantia/sessionbrowser/cmd/sessionbrowser/cli/server"
)

var (
	version = "0.0.1-dev"
	commit  = "main"
)

func main() {
	root := cli.NewRootCommand(cli.VersionInfo{
		Version: version,
		Commit:  commit,
	})

	root.AddCommand(cli.NewVersionCommand())

	root.AddCommand(server.NewAgentCommand())
	root.AddCommand(server.NewConfigCommand())
	root.AddCommand(server.NewDatabaseCommand())

	root.AddCommand(client.NewFilesCommand())
	root.AddCommand(client.NewPrefsCommand())

	if err := root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
