package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI is the top-level command structure.
type CLI struct {
	Config   string `help:"Path to config file" type:"path"`
	LogLevel string `default:"warn" help:"Log level"`

	Serve  ServeCmd  `cmd:"" help:"Run the websocket backend"`
	Chat   ChatCmd   `cmd:"" help:"Interactive chat against a running backend"`
	Render RenderCmd `cmd:"" help:"Render markdown content to its display tree"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("william"),
		kong.Description("Realtime LLM chat client and backend"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	err := ctx.Run(&cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
