package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// prompter reads answers line by line from a single scanner so that input
// buffered for one question is not lost to the next.
type prompter struct {
	sc  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{sc: bufio.NewScanner(in), out: out}
}

// line reads the next trimmed line. ok is false at end of input.
func (p *prompter) line() (s string, ok bool) {
	if !p.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.sc.Text()), true
}

// ask prints label and returns the answer.
func (p *prompter) ask(label string) string {
	fmt.Fprintf(p.out, "%s: ", label)
	s, _ := p.line()
	return s
}

// askDefault is like ask but an empty answer keeps def.
func (p *prompter) askDefault(label, def string) string {
	fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	if s, _ := p.line(); s != "" {
		return s
	}
	return def
}

// confirm asks a yes/no question that defaults to no.
func (p *prompter) confirm(label string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", label)
	s, _ := p.line()
	switch strings.ToLower(s) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// fill prompts for every empty value in order.
func (p *prompter) fill(fields ...promptField) {
	for _, f := range fields {
		if *f.value == "" {
			*f.value = p.ask(f.label)
		}
	}
}

type promptField struct {
	label string
	value *string
}
