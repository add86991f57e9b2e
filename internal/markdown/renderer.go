// Package markdown turns markdown text into display output. HTMLRenderer
// produces sanitized HTML with highlighting, math, callouts, badges and
// spoilers; TermRenderer produces ANSI text for terminals.
package markdown

import (
	"fmt"
	"unicode/utf8"
)

// Renderer converts markdown to an output string. Implementations must be
// safe for concurrent use.
type Renderer interface {
	Render(markdown string) (string, error)
}

// RendererFunc adapts a plain function to Renderer.
type RendererFunc func(markdown string) (string, error)

// Render calls f.
func (f RendererFunc) Render(markdown string) (string, error) {
	return f(markdown)
}

// ParseError is returned when input cannot be rendered.
type ParseError struct {
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("markdown: %s: %v", e.Message, e.Err)
	}
	return "markdown: " + e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// validate rejects input no renderer can handle faithfully.
func validate(markdown string) error {
	if !utf8.ValidString(markdown) {
		return &ParseError{Message: "input is not valid UTF-8"}
	}
	return nil
}
