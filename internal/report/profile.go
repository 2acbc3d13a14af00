package report

import (
	"fmt"
	"io"
	"strconv"

	"tgdash/internal/format"
	"tgdash/pkg/model"
)

// Profile renders the results of an RFC2544 or IMIX profile run.
func (b *PDFBuilder) Profile(w io.Writer, st model.ProfileStatus) error {
	sections := profileSections(st.Results)
	sections = append(sections, section{Title: "Glossary", draw: drawGlossary})
	tocPages := paginate(sections)

	title := st.Kind.String() + " Profile Report"
	doc := b.newDocument(title)
	sub := "Completed"
	if st.Running {
		sub = "Running: " + st.CurrentTest
	}
	doc.cover(title, sub, b.now())
	links := doc.toc(sections, tocPages)
	for i, s := range sections {
		doc.pdf.AddPage()
		doc.pdf.SetLink(links[i], 0, -1)
		doc.pdf.Bookmark(doc.tr(s.Title), 0, 0)
		doc.heading(s.Title)
		s.draw(doc)
	}
	if err := doc.pdf.Error(); err != nil {
		return fmt.Errorf("build profile pdf: %w", err)
	}
	return output(doc, w)
}

func profileSections(res model.ProfileResults) []section {
	var out []section
	add := func(title string, header []string, widths []float64, rows [][]string) {
		if len(rows) == 0 {
			return
		}
		out = append(out, section{
			Title: title,
			Pages: chunks(len(rows), rowsPerPage),
			draw:  func(d *document) { d.pagedTable(title, header, widths, rows) },
		})
	}
	for _, t := range model.AllRFCTests {
		switch t {
		case model.RFCThroughput:
			add(t.Title(), []string{"Frame size", "Throughput"}, []float64{90, 90},
				sizeRows(res.Throughput, func(v float64) string { return format.Bits(v*1e6, 2) }))
		case model.RFCLatency:
			add(t.Title(), []string{"Frame size", "Latency"}, []float64{90, 90},
				sizeRows(res.Latency, func(v float64) string { return format.Time(v, 2) }))
		case model.RFCFrameLoss:
			add(t.Title(), []string{"Frame size", "Offered load", "Frame loss"}, []float64{60, 60, 60},
				frameLossRows(res.FrameLossRate))
		case model.RFCBackToBack:
			add(t.Title(), []string{"Frame size", "Back-to-back frames"}, []float64{90, 90},
				sizeRows(res.BackToBack, func(v float64) string { return format.Count(uint64(v)) }))
		}
	}
	add("IMIX", []string{"Frame size", "Share of traffic"}, []float64{90, 90},
		sizeRows(res.IMIX, func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) + " %" }))
	return out
}

func sizeKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	model.SortPortIDs(keys)
	return keys
}

func sizeRows(m map[string]float64, f func(float64) string) [][]string {
	rows := make([][]string, 0, len(m))
	for _, k := range sizeKeys(m) {
		rows = append(rows, []string{k + " bytes", f(m[k])})
	}
	return rows
}

func frameLossRows(m map[string]map[string]float64) [][]string {
	var rows [][]string
	for _, size := range sizeKeys(m) {
		for _, load := range sizeKeys(m[size]) {
			rows = append(rows, []string{size + " bytes", load + " %", strconv.FormatFloat(m[size][load], 'f', 3, 64) + " %"})
		}
	}
	return rows
}
