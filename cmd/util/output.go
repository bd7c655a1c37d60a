package util

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
)

// OutputFormat selects how command results are printed
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

// Printer prints command results in the selected format
type Printer struct {
	format OutputFormat
	out    io.Writer

	key   *color.Color
	value *color.Color
	faint *color.Color
}

// NewPrinter creates a printer writing to out. Text output is colored only if out is a terminal.
func NewPrinter(format string, out io.Writer) (*Printer, error) {
	f := OutputFormat(format)
	switch f {
	case OutputText, OutputJSON, OutputYAML:
	default:
		return nil, fmt.Errorf("invalid output format %q (expected one of: text, json, yaml)", format)
	}

	p := &Printer{
		format: f,
		out:    out,
		key:    color.New(color.FgCyan, color.Bold),
		value:  color.New(color.FgGreen),
		faint:  color.New(color.Faint),
	}

	if !isTerminal(out) {
		p.key.DisableColor()
		p.value.DisableColor()
		p.faint.DisableColor()
	}
	return p, nil
}

// Format returns the selected output format
func (p *Printer) Format() OutputFormat {
	return p.format
}

// Print writes v as json or yaml, or calls text for the text format
func (p *Printer) Print(v any, text func(p *Printer)) error {
	switch p.format {
	case OutputJSON:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(p.out, string(b))
		return err
	case OutputYAML:
		b, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = p.out.Write(b)
		return err
	default:
		text(p)
		return nil
	}
}

// Pair prints "key = value" in the text format
func (p *Printer) Pair(key, value string) {
	fmt.Fprintf(p.out, "%s %s %s\n", p.key.Sprint(key), p.faint.Sprint("="), p.value.Sprint(value))
}

// Line prints a plain line in the text format
func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Faint prints a de-emphasized line in the text format
func (p *Printer) Faint(format string, args ...any) {
	fmt.Fprintln(p.out, p.faint.Sprintf(format, args...))
}

// isTerminal reports whether w is a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
