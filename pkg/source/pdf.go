package source

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/yurifrl/brokerfacts/pkg/models"
	"rsc.io/pdf"
)

type pdfDocument struct {
	file   *os.File
	reader *pdf.Reader
}

// OpenPDF opens a PDF and reads its page tree. Glyph positions are turned into
// words lazily, one page at a time.
func OpenPDF(path string) (doc Document, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			f.Close()
			doc, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	r, err := pdf.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	return &pdfDocument{file: f, reader: r}, nil
}

func (d *pdfDocument) NumPages() int {
	return d.reader.NumPage()
}

func (d *pdfDocument) Page(i int) (page models.Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: %v", i, r)
		}
	}()
	p := d.reader.Page(i + 1)
	if p.V.IsNull() {
		return models.Page{}, fmt.Errorf("page %d not found", i)
	}
	return models.NewPage(i, findWords(p.Content().Text)...), nil
}

func (d *pdfDocument) Close() error {
	return d.file.Close()
}

// findWords groups glyphs into words, top to bottom and left to right. Glyphs
// whose baselines differ by less than a point share a line.
func findWords(chars []pdf.Text) []string {
	const nudge = 1
	sort.Sort(pdf.TextVertical(chars))
	old := -100000.0
	for i, c := range chars {
		if c.Y != old && math.Abs(old-c.Y) < nudge {
			chars[i].Y = old
		} else {
			old = c.Y
		}
	}
	sort.Sort(pdf.TextVertical(chars))

	var words []string
	for i := 0; i < len(chars); {
		j := i + 1
		for j < len(chars) && chars[j].Y == chars[i].Y {
			j++
		}
		for k := i; k < j; {
			ck := chars[k]
			var b strings.Builder
			b.WriteString(ck.S)
			end := ck.X + ck.W
			charSpace := ck.FontSize / 6
			l := k + 1
			for l < j && chars[l].X <= end+charSpace && strings.TrimSpace(chars[l].S) != "" {
				b.WriteString(chars[l].S)
				end = chars[l].X + chars[l].W
				l++
			}
			words = append(words, strings.Fields(b.String())...)
			k = l
			// skip the gap glyphs that separated this word from the next
			for k < j && strings.TrimSpace(chars[k].S) == "" {
				k++
			}
		}
		i = j
	}
	return words
}
