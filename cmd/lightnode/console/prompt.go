package console

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

type LineHandler func(ctx context.Context, line string) error

// Session reads lines from the terminal and hands each non-empty one to handle
// until EOF, interrupt or "quit". Handler errors are printed and the session
// goes on.
func Session(ctx context.Context, prompt string, handle LineHandler) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return err
	}
	defer func() { _ = rl.Close() }()
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "quit") {
			return nil
		}
		if err := handle(ctx, line); err != nil {
			Errorf("%s", err)
		}
	}
}
