package batch

import (
	"fmt"
	"io"
	"strings"
)

// Progress receives display events while a batch runs.
type Progress interface {
	Sheet(label string)
	Page(total int)
	Advance()
	Done()
}

// NopProgress discards progress events.
type NopProgress struct{}

func (NopProgress) Sheet(string) {}
func (NopProgress) Page(int) {}
func (NopProgress) Advance() {}
func (NopProgress) Done() {}

const barWidth = 28

// ConsoleProgress draws a bar per page that advances on applied payments only.
type ConsoleProgress struct {
	w     io.Writer
	total int
	done  int
}

// NewConsoleProgress writes progress to w.
func NewConsoleProgress(w io.Writer) *ConsoleProgress {
	return &ConsoleProgress{w: w}
}

func (p *ConsoleProgress) Sheet(label string) {
	fmt.Fprintf(p.w, "\n %s\n", label)
}

func (p *ConsoleProgress) Page(total int) {
	p.total, p.done = total, 0
	p.draw()
}

func (p *ConsoleProgress) Advance() {
	p.done++
	p.draw()
}

func (p *ConsoleProgress) Done() {
	fmt.Fprintln(p.w)
}

func (p *ConsoleProgress) draw() {
	filled := 0
	if p.total > 0 {
		filled = barWidth * p.done / p.total
	}
	bar := strings.Repeat("=", filled)
	if filled < barWidth {
		bar += ">" + strings.Repeat(" ", barWidth-filled-1)
	}
	fmt.Fprintf(p.w, "\r %d/%d [%s]", p.done, p.total, bar)
}
