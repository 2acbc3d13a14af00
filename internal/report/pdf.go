package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"tgdash/internal/format"
	"tgdash/internal/stats"
	"tgdash/internal/visual"
	"tgdash/pkg/model"
)

const (
	tocEntriesPerPage = 32
	rowsPerPage       = 30
	lineHeight        = 7.0
	contentWidth      = 180.0
)

// section starts on its own page. Pages is fixed before drawing so the table
// of contents can be written first; zero means one page.
type section struct {
	Title string
	Page  int
	Pages int
	draw  func(*document)
}

func (s section) pageCount() int {
	return max(s.Pages, 1)
}

type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// PDFBuilder renders the merged network report.
type PDFBuilder struct {
	log *zap.Logger
	// Now stamps the document. Defaults to time.Now.
	Now func() time.Time
}

func NewPDFBuilder(log *zap.Logger) *PDFBuilder {
	return &PDFBuilder{log: orNop(log), Now: time.Now}
}

// Build writes the report for every test in d.
func (b *PDFBuilder) Build(w io.Writer, d Dataset) error {
	doc, _, err := b.render(d)
	if err != nil {
		return err
	}
	return output(doc, w)
}

func (b *PDFBuilder) render(d Dataset) (*document, []section, error) {
	results := collect(b.log, d)
	var sections []section
	for _, r := range results {
		sections = append(sections, b.testSections(r)...)
	}
	sections = append(sections, section{Title: "Glossary", draw: drawGlossary})
	tocPages := paginate(sections)

	doc := b.newDocument("Network Report")
	doc.cover("Network Report", fmt.Sprintf("%d test(s)", len(results)), b.now())
	links := doc.toc(sections, tocPages)
	for i, s := range sections {
		doc.pdf.AddPage()
		doc.pdf.SetLink(links[i], 0, -1)
		doc.pdf.Bookmark(doc.tr(s.Title), 0, 0)
		doc.heading(s.Title)
		s.draw(doc)
	}
	if err := doc.pdf.Error(); err != nil {
		return nil, nil, fmt.Errorf("build pdf: %w", err)
	}
	return doc, sections, nil
}

func (b *PDFBuilder) now() time.Time {
	if b.Now == nil {
		return time.Now()
	}
	return b.Now()
}

// paginate assigns page numbers: page 1 is the cover, the table of contents
// follows, then the sections in order. It returns the number of TOC pages.
func paginate(sections []section) int {
	tocPages := chunks(len(sections), tocEntriesPerPage)
	next := 2 + tocPages
	for i := range sections {
		sections[i].Page = next
		next += sections[i].pageCount()
	}
	return tocPages
}

// chunks is the number of pages n rows need, at least one.
func chunks(n, perPage int) int {
	if n <= perPage {
		return 1
	}
	return (n + perPage - 1) / perPage
}

func (b *PDFBuilder) testSections(r testResult) []section {
	title := r.title()
	out := []section{
		{Title: title + " - Summary", draw: func(d *document) { d.summary(r) }},
		{Title: title + " - Frame Types", draw: func(d *document) { d.frameTypes(r) }},
		{Title: title + " - Frame Sizes", draw: func(d *document) { d.frameSizes(r) }},
	}
	if apps := appRows(r.Summary); len(apps) > 0 {
		out = append(out, section{
			Title: title + " - Applications",
			Pages: chunks(len(apps), rowsPerPage),
			draw: func(d *document) {
				d.pagedTable(title+" - Applications", []string{"Application", "TX L2", "RX L2"}, threeCols, apps)
			},
		})
	}
	hist := histogramRows(r)
	out = append(out, section{
		Title: title + " - RTT Histogram",
		Pages: chunks(len(hist), rowsPerPage),
		draw: func(d *document) {
			if !r.HasHist {
				d.paragraph("Not available.")
				return
			}
			d.pagedTable(title+" - RTT Histogram", []string{"Range", "Packets"}, []float64{100, 80}, hist)
		},
	})
	for _, c := range r.Charts {
		var buf bytes.Buffer
		err := visual.RenderLine(&buf, c)
		if errors.Is(err, visual.ErrNoData) {
			continue
		}
		if err != nil {
			b.log.Warn("chart skipped", zap.String("test", r.Number), zap.String("chart", c.Name), zap.Error(err))
			continue
		}
		name := "test" + r.Number + "-" + c.Name
		png := buf.Bytes()
		out = append(out, section{
			Title: title + " - " + c.Title,
			draw:  func(d *document) { d.image(name, png) },
		})
	}
	return out
}

func (b *PDFBuilder) newDocument(title string) *document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("tgdash", true)
	pdf.SetCreationDate(b.now())
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AliasNbPages("{nb}")
	d := &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(func() {
		if pdf.PageNo() == 1 {
			return
		}
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	return d
}

func output(d *document, w io.Writer) error {
	if err := d.pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (d *document) cover(title, subtitle string, at time.Time) {
	d.pdf.AddPage()
	d.pdf.SetY(100)
	d.pdf.SetFont("Helvetica", "B", 28)
	d.pdf.CellFormat(0, 14, d.tr(title), "", 1, "C", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 14)
	d.pdf.CellFormat(0, 10, d.tr(subtitle), "", 1, "C", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 11)
	d.pdf.CellFormat(0, 8, at.Format("2006-01-02 15:04:05 MST"), "", 1, "C", false, 0, "")
}

// toc draws the contents pages and returns one internal link per section.
func (d *document) toc(sections []section, pages int) []int {
	links := make([]int, len(sections))
	for i := range sections {
		links[i] = d.pdf.AddLink()
	}
	for p := 0; p < pages; p++ {
		d.pdf.AddPage()
		d.heading("Table of Contents")
		d.pdf.SetFont("Helvetica", "", 11)
		end := min((p+1)*tocEntriesPerPage, len(sections))
		for i := p * tocEntriesPerPage; i < end; i++ {
			s := sections[i]
			d.pdf.CellFormat(contentWidth-20, lineHeight, d.tr(s.Title), "", 0, "L", false, links[i], "")
			d.pdf.CellFormat(20, lineHeight, strconv.Itoa(s.Page), "", 1, "R", false, links[i], "")
		}
	}
	return links
}

func (d *document) heading(text string) {
	d.pdf.SetFont("Helvetica", "B", 16)
	d.pdf.CellFormat(0, 12, d.tr(text), "B", 1, "L", false, 0, "")
	d.pdf.Ln(4)
}

func (d *document) subheading(text string) {
	d.pdf.Ln(3)
	d.pdf.SetFont("Helvetica", "B", 12)
	d.pdf.CellFormat(0, 8, d.tr(text), "", 1, "L", false, 0, "")
}

func (d *document) table(header []string, widths []float64, rows [][]string) {
	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.SetFillColor(225, 230, 240)
	for i, h := range header {
		d.pdf.CellFormat(widths[i], lineHeight, d.tr(h), "1", 0, "C", true, 0, "")
	}
	d.pdf.Ln(-1)
	d.pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		for i, c := range row {
			align := "R"
			if i == 0 {
				align = "L"
			}
			d.pdf.CellFormat(widths[i], lineHeight, d.tr(c), "1", 0, align, false, 0, "")
		}
		d.pdf.Ln(-1)
	}
}

// pagedTable splits rows over consecutive pages, rowsPerPage at a time.
func (d *document) pagedTable(title string, header []string, widths []float64, rows [][]string) {
	for start := 0; start < len(rows) || start == 0; start += rowsPerPage {
		if start > 0 {
			d.pdf.AddPage()
			d.heading(title + " (continued)")
		}
		d.table(header, widths, rows[start:min(start+rowsPerPage, len(rows))])
	}
}

func (d *document) image(name string, png []byte) {
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	d.pdf.ImageOptions(name, 15, d.pdf.GetY(), contentWidth, 0, true, opts, 0, "")
}

func (d *document) paragraph(text string) {
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.MultiCell(0, 5, d.tr(text), "", "L", false)
}

var threeCols = []float64{80, 50, 50}

func (d *document) summary(r testResult) {
	s := r.Summary
	d.paragraph(fmt.Sprintf("Mode: %s    Streams: %d    Port mapping: %s",
		r.Def.Mode, len(r.Def.Streams), mappingText(r.Def.PortTxRxMapping)))
	d.subheading("Rates and timing")
	d.table([]string{"Metric", "TX", "RX"}, threeCols, [][]string{
		{"Rate L1", format.Bits(s.Rates.TxL1, 2), format.Bits(s.Rates.RxL1, 2)},
		{"Rate L2", format.Bits(s.Rates.TxL2, 2), format.Bits(s.Rates.RxL2, 2)},
		{"IAT mean", format.Time(s.IATTx.Mean, 2), format.Time(s.IATRx.Mean, 2)},
		{"IAT std", format.Time(s.IATTx.Std, 2), format.Time(s.IATRx.Std, 2)},
		{"IAT MAE", format.Time(s.IATTx.MAE, 2), format.Time(s.IATRx.MAE, 2)},
	})
	d.subheading("Round trip time")
	d.table([]string{"Mean", "Min", "Max", "Jitter", "Current", "Samples"}, []float64{30, 30, 30, 30, 30, 30}, [][]string{{
		format.Time(s.RTT.Mean, 2), format.Time(s.RTT.Min, 2), format.Time(s.RTT.Max, 2),
		format.Time(s.RTT.Jitter, 2), format.Time(s.RTT.Current, 2), format.Count(s.RTT.N),
	}})
	d.subheading("Loss")
	d.table([]string{"Metric", "Value"}, []float64{80, 100}, [][]string{
		{"Lost packets", format.Count(s.Lost)},
		{"Out of order packets", format.Count(s.OutOfOrder)},
		{"Packet loss", fmt.Sprintf("%.2f %%", s.LossPercent)},
		{"Elapsed", format.Elapsed(s.Elapsed)},
	})
}

func (d *document) frameTypes(r testResult) {
	d.subheading("Frame types")
	d.table([]string{"Type", "TX", "RX"}, threeCols, totalsRows(r.Summary.FrameTypes, model.FrameTypes))
	d.subheading("Ethernet types")
	d.table([]string{"Type", "TX", "RX"}, threeCols, totalsRows(r.Summary.EthernetTypes, model.EthernetTypes))
}

func (d *document) frameSizes(r testResult) {
	var rows [][]string
	for i, tx := range r.Summary.TxFrameSizes {
		var rx uint64
		if i < len(r.Summary.RxFrameSizes) {
			rx = r.Summary.RxFrameSizes[i].Packets
		}
		rows = append(rows, []string{visual.BucketLabel(tx.Low, tx.High) + " bytes", format.Count(tx.Packets), format.Count(rx)})
	}
	d.table([]string{"Frame size", "TX", "RX"}, threeCols, rows)
}

func totalsRows(totals map[string]stats.TxRx, names []string) [][]string {
	rows := make([][]string, 0, len(names))
	for _, n := range names {
		t := totals[n]
		rows = append(rows, []string{n, format.Count(t.TX), format.Count(t.RX)})
	}
	return rows
}

func appRows(s stats.Summary) [][]string {
	var rows [][]string
	for _, app := range appIDs(s) {
		rows = append(rows, []string{app, format.Bits(s.AppTx[app], 2), format.Bits(s.AppRx[app], 2)})
	}
	return rows
}

func histogramRows(r testResult) [][]string {
	rows := make([][]string, 0, len(r.Histogram))
	for _, b := range r.Histogram {
		rows = append(rows, []string{format.Time(b.Low, 0) + " - " + format.Time(b.High, 0), format.Count(b.Count)})
	}
	return rows
}

func appIDs(s stats.Summary) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, m := range []map[string]float64{s.AppTx, s.AppRx} {
		for id := range m {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	model.SortPortIDs(ids)
	return ids
}

func mappingText(m model.PortMapping) string {
	if len(m) == 0 {
		return "none"
	}
	var out string
	for i, tx := range m.TXPorts() {
		if i > 0 {
			out += ", "
		}
		out += tx + " -> " + m[tx]
	}
	return out
}
