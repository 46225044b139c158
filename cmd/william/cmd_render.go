package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/chamber-ai/william/src/render"
)

// RenderCmd renders markdown content to the JSON display tree, the same
// shape the chat frontend consumes.
type RenderCmd struct {
	File string `arg:"" optional:"" help:"Markdown file to render (defaults to stdin)" type:"path"`
}

func (cmd *RenderCmd) Run(cli *CLI) error {
	var (
		data []byte
		err  error
	)
	if cmd.File != "" {
		data, err = os.ReadFile(cmd.File)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	tree := render.Render(string(data))
	out, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
