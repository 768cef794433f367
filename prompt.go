package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type Decision int

const (
	DecisionExit Decision = iota
	DecisionRetry
	DecisionTimeout
)

func (d Decision) String() string {
	switch d {
	case DecisionRetry:
		return "retry"
	case DecisionTimeout:
		return "timeout"
	}
	return "exit"
}

// Prompter asks the operator what to do after a failed run. One reader
// goroutine owns In for the life of the Prompter.
type Prompter struct {
	In      io.Reader
	Out     io.Writer
	Timeout time.Duration

	once  sync.Once
	lines chan string
}

func NewPrompter(in io.Reader, out io.Writer, timeout time.Duration) *Prompter {
	return &Prompter{In: in, Out: out, Timeout: timeout}
}

func (p *Prompter) start() {
	p.once.Do(func() {
		p.lines = make(chan string)
		go func() {
			defer close(p.lines)
			scanner := bufio.NewScanner(p.In)
			for scanner.Scan() {
				p.lines <- scanner.Text()
			}
		}()
	})
}

// AskRetry prompts for y/n until an answer arrives or the inactivity window
// closes. The window covers the whole exchange, not each prompt.
func (p *Prompter) AskRetry(ctx context.Context) (Decision, error) {
	p.start()
	waitCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	for {
		fmt.Fprintln(p.Out, "Press y for yes or n for no.")
		fmt.Fprint(p.Out, "Retry process? (y/n): ")

		select {
		case line, ok := <-p.lines:
			if !ok {
				fmt.Fprintln(p.Out)
				return DecisionExit, nil
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "":
				fmt.Fprintln(p.Out, "You must enter a valid command.")
			case "y":
				return DecisionRetry, nil
			case "n":
				return DecisionExit, nil
			}
		case <-waitCtx.Done():
			if ctxErr := ctx.Err(); ctxErr != nil {
				return DecisionExit, ctxErr
			}
			fmt.Fprintln(p.Out, color.YellowString("\nWARNING - Exiting due to inactivity... "))
			return DecisionTimeout, nil
		}
	}
}

// Pause waits for the operator to acknowledge a fatal message.
func (p *Prompter) Pause(ctx context.Context) {
	p.start()
	fmt.Fprint(p.Out, "Press enter to continue...")
	select {
	case <-p.lines:
	case <-ctx.Done():
	}
	fmt.Fprintln(p.Out)
}
