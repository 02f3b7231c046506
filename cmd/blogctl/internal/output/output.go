// Package output formats blogctl results for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/presenter"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

const titleWidth = 48

// Printer writes human output to out and diagnostics to err.
type Printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
}

// NewPrinter honours NO_COLOR and a dumb TERM in addition to useColors.
func NewPrinter(out, err io.Writer, useColors bool) *Printer {
	if _, ok := os.LookupEnv("NO_COLOR"); ok || os.Getenv("TERM") == "dumb" {
		useColors = false
	}
	return &Printer{out: out, err: err, useColors: useColors}
}

func (p *Printer) Out() io.Writer {
	return p.out
}

func (p *Printer) paint(attr color.Attribute, s string) string {
	if !p.useColors {
		return s
	}
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(s)
}

func (p *Printer) Bold(s string) string  { return p.paint(color.Bold, s) }
func (p *Printer) Faint(s string) string { return p.paint(color.Faint, s) }

func (p *Printer) Header(format string, args ...any) {
	fmt.Fprintln(p.out, p.paint(color.FgCyan, fmt.Sprintf(format, args...)))
}

func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.out, p.paint(color.FgGreen, "✓ "+fmt.Sprintf(format, args...)))
}

func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.err, p.paint(color.FgYellow, "! "+fmt.Sprintf(format, args...)))
}

func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.err, p.paint(color.FgRed, "✗ "+fmt.Sprintf(format, args...)))
}

// JSON writes v indented.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table renders rows under headers without borders.
func (p *Printer) Table(headers []string, rows [][]string) {
	table := tablewriter.NewTable(p.out,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	table.Header(headers)
	table.Bulk(rows)
	table.Render()
}

// Posts renders a post listing.
func (p *Printer) Posts(posts []content.Post) {
	rows := make([][]string, 0, len(posts))
	for _, post := range posts {
		rows = append(rows, []string{
			post.ID,
			Truncate(post.Title, titleWidth),
			post.Category,
			post.Date,
			strconv.Itoa(post.ReadTime) + " min",
		})
	}
	p.Table([]string{"ID", "TITLE", "CATEGORY", "DATE", "READ"}, rows)
}

// Presentation renders one page of search results with its summary line.
func (p *Printer) Presentation(pr presenter.Presentation) {
	if pr.AppliedTranslation != nil {
		p.Info("Searching for %s %s %s",
			p.Bold(pr.AppliedTranslation.From), p.Faint("→"), p.Bold(pr.AppliedTranslation.To))
	}
	if pr.TotalMatches == 0 {
		p.Warn("no posts match %q", strings.TrimSpace(pr.Query))
		return
	}
	p.Posts(pr.Posts)
	p.Info("%s", p.Faint(fmt.Sprintf("page %d of %d, %d matches", pr.Page, pr.TotalPages, pr.TotalMatches)))
}

// Truncate shortens s to at most n runes, ending in an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
