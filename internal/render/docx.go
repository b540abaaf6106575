package render

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/fumiama/go-docx"
)

// bodySize is the run size in half-points (12pt).
const bodySize = "24"

// DOCXRenderer writes a Word document: a Heading1 per unit holding its
// path, body paragraphs, and a page break after each unit.
type DOCXRenderer struct {
	opts Options
}

func (r *DOCXRenderer) Render(w io.Writer, doc Document) error {
	d := docx.New().WithDefaultTheme()

	if r.opts.IncludeTitle && doc.Title != "" {
		d.AddParagraph().Style("Title").AddText(doc.Title)
	}

	for _, b := range blocks(doc, r.opts) {
		d.AddParagraph().Style("Heading1").AddText(b.Path)

		for _, para := range b.Paragraphs {
			p := d.AddParagraph()
			if para.Heading > 0 {
				p.Style(fmt.Sprintf("Heading%d", para.Heading))
			}
			for i, line := range para.Lines {
				if i > 0 {
					p.AddText(" ").Size(bodySize)
				}
				for _, span := range line {
					addRun(p, span, para.Heading > 0)
				}
			}
		}

		d.AddParagraph().AddPageBreaks()
	}

	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return repack(w, buf.Bytes())
}

// repack rewrites the archive with entries sorted by name and no
// timestamps, so equal documents produce equal bytes.
func repack(w io.Writer, archive []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return fmt.Errorf("read docx archive: %w", err)
	}
	files := append([]*zip.File(nil), zr.File...)
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	zw := zip.NewWriter(w)
	for _, f := range files {
		dst, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("write docx entry %s: %w", f.Name, err)
		}
		src, err := f.Open()
		if err != nil {
			return fmt.Errorf("read docx entry %s: %w", f.Name, err)
		}
		_, err = io.Copy(dst, src)
		src.Close()
		if err != nil {
			return fmt.Errorf("copy docx entry %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

func addRun(p *docx.Paragraph, span Span, heading bool) {
	run := p.AddText(span.Text)
	if !heading {
		run.Size(bodySize)
	}
	switch span.Style {
	case Bold:
		run.Bold()
	case Italic:
		run.Italic()
	}
}
