package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var errNoInput = errors.New("no input")

// prompter reads answers line by line.
type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewScanner(in), out: out}
}

func (p *prompter) ask(question string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", question)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", errNoInput
	}
	return strings.TrimSpace(p.in.Text()), nil
}

// fill asks for value unless it was given on the command line.
func (p *prompter) fill(value *string, question string) error {
	if *value != "" {
		return nil
	}
	answer, err := p.ask(question)
	if err != nil {
		return err
	}
	*value = answer
	return nil
}
