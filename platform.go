package main

import (
	"fmt"
	"io"
)

var supportedPlatforms = map[string]bool{
	"linux":   true,
	"darwin":  true,
	"windows": true,
}

func checkPlatform(goos string) error {
	if !supportedPlatforms[goos] {
		return fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
	return nil
}

func clearScreen(out io.Writer) {
	fmt.Fprint(out, "\033[H\033[2J")
}

// printClearLine overwrites the current terminal line with msg.
func printClearLine(out io.Writer, msg string) {
	fmt.Fprintf(out, "\033[K%s\r", msg)
}
