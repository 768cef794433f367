package main

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Countdown prints the self-termination notice. It runs after interrupts
// too, so it does not take the run's context.
type Countdown struct {
	Out   io.Writer
	Sleep Sleeper
	From  int
}

func NewCountdown(out io.Writer) *Countdown {
	return &Countdown{Out: out, Sleep: contextSleep, From: 5}
}

func (c *Countdown) Run() {
	ctx := context.Background()
	fmt.Fprintln(c.Out, "This program will self-terminate in five seconds.")
	c.Sleep(ctx, 3*time.Second)
	fmt.Fprintln(c.Out, "Exiting... ")
	for i := c.From; i > 0; i-- {
		fmt.Fprintln(c.Out, i)
		c.Sleep(ctx, time.Second)
	}
}
