package document

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/goliatone/go-artefacts/pkg/export"
	"github.com/goliatone/go-artefacts/pkg/render"
)

const (
	defaultLinesPerPage = 60
	defaultCellWidth    = 40
	pageBreak           = "\f"
)

// PaginatedOption customises the paginated renderer.
type PaginatedOption func(*Paginated)

// WithLinesPerPage sets the page height.
func WithLinesPerPage(lines int) PaginatedOption {
	return func(p *Paginated) {
		if lines > 8 {
			p.linesPerPage = lines
		}
	}
}

// WithCellWidth truncates cells to width runes.
func WithCellWidth(width int) PaginatedOption {
	return func(p *Paginated) {
		if width > 3 {
			p.cellWidth = width
		}
	}
}

// Paginated renders tables as aligned plain text split into form-feed
// separated pages. A table cut by a page break repeats its heading.
type Paginated struct {
	linesPerPage int
	cellWidth    int
}

var _ render.DocumentRenderer = (*Paginated)(nil)

// NewPaginated builds a paginated renderer.
func NewPaginated(options ...PaginatedOption) *Paginated {
	p := &Paginated{linesPerPage: defaultLinesPerPage, cellWidth: defaultCellWidth}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(p)
	}
	return p
}

func (p *Paginated) Name() string        { return "paginated" }
func (p *Paginated) Extension() string   { return "txt" }
func (p *Paginated) ContentType() string { return "text/plain; charset=utf-8" }

// Render lays doc out page by page.
func (p *Paginated) Render(ctx context.Context, doc render.Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w := &pager{limit: p.linesPerPage - 1}

	w.line(strings.ToUpper(doc.Project.Name))
	w.line("Descripción: " + orNA(doc.Project.Description))
	w.line("Estado: " + orNA(doc.Project.Status))
	if !doc.GeneratedAt.IsZero() {
		w.line("Generado: " + doc.GeneratedAt.Format("2006-01-02 15:04"))
	}

	for _, table := range doc.Tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		heading, rows, err := p.layout(table)
		if err != nil {
			return nil, err
		}
		// Title, header, rule and at least one row stay together.
		if w.remaining() < len(heading)+2 {
			w.breakPage()
		} else {
			w.line("")
		}
		w.lines(heading)
		for _, row := range rows {
			if w.remaining() < 1 {
				w.breakPage()
				w.line(heading[0] + " (cont.)")
				w.lines(heading[1:])
			}
			w.line(row)
		}
	}
	return w.finish(), nil
}

// layout aligns one table with tabwriter and returns its heading lines
// (title, header, rule) and row lines.
func (p *Paginated) layout(table export.Table) ([]string, []string, error) {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	rule := make([]string, len(table.Headers))
	for idx, header := range table.Headers {
		rule[idx] = strings.Repeat("-", utf8.RuneCountInString(p.clip(header)))
	}
	fmt.Fprintln(tw, p.join(table.Headers))
	fmt.Fprintln(tw, strings.Join(rule, "\t"))
	for _, row := range table.Rows {
		fmt.Fprintln(tw, p.join(row))
	}
	if err := tw.Flush(); err != nil {
		return nil, nil, fmt.Errorf("document: paginated %s: %w", table.Kind, err)
	}

	var lines []string
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), " "))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("document: paginated %s: %w", table.Kind, err)
	}
	title := fmt.Sprintf("== %s ==", table.Title)
	return append([]string{title}, lines[:2]...), lines[2:], nil
}

func (p *Paginated) join(cells []string) string {
	clipped := make([]string, len(cells))
	for idx, cell := range cells {
		clipped[idx] = p.clip(cell)
	}
	return strings.Join(clipped, "\t")
}

// clip flattens whitespace and truncates to the cell width.
func (p *Paginated) clip(cell string) string {
	flat := strings.Join(strings.Fields(cell), " ")
	if utf8.RuneCountInString(flat) <= p.cellWidth {
		return flat
	}
	runes := []rune(flat)
	return string(runes[:p.cellWidth-1]) + "…"
}

// pager counts lines and numbers pages. Every page holds limit lines plus a
// footer line.
type pager struct {
	buf   bytes.Buffer
	limit int
	used  int
	page  int
}

func (w *pager) line(text string) {
	if w.used >= w.limit {
		w.breakPage()
	}
	w.buf.WriteString(text)
	w.buf.WriteByte('\n')
	w.used++
}

func (w *pager) lines(texts []string) {
	for _, text := range texts {
		w.line(text)
	}
}

func (w *pager) remaining() int {
	return w.limit - w.used
}

func (w *pager) breakPage() {
	w.footer()
	w.buf.WriteString(pageBreak)
	w.used = 0
}

func (w *pager) footer() {
	w.page++
	for ; w.used < w.limit; w.used++ {
		w.buf.WriteByte('\n')
	}
	w.buf.WriteString(footerMarker)
	w.buf.WriteByte('\n')
}

// footerMarker stands in for the page footer until the page count is known.
const footerMarker = "\x00page\x00"

func (w *pager) finish() []byte {
	w.footer()
	parts := bytes.Split(w.buf.Bytes(), []byte(footerMarker))
	var out bytes.Buffer
	for idx, part := range parts {
		out.Write(part)
		if idx < len(parts)-1 {
			fmt.Fprintf(&out, "Página %d/%d", idx+1, w.page)
		}
	}
	return out.Bytes()
}

func orNA(text string) string {
	if strings.TrimSpace(text) == "" {
		return "N/A"
	}
	return text
}
