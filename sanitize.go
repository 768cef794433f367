package main

import "strings"

// sanitize replaces every rune outside [A-Za-z0-9-_./] with an underscore so
// the result is usable as an S3 key prefix.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.', r == '/':
			return r
		}
		return '_'
	}, name)
}
