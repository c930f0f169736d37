package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/yurifrl/brokerfacts/pkg/models"
)

const pageMarker = "--- page"

// OpenDump reads a token dump. See ReadDump for the format.
func OpenDump(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadDump(f)
}

// ReadDump parses the text form written by WriteDump: a "--- page N" line opens
// each page and every following line is "<rank> <word>". Any other line, and
// every line before the first page marker, is free text split into words.
// Blank lines and lines starting with '#' are ignored.
func ReadDump(r io.Reader) (Pages, error) {
	var pages Pages
	current := -1
	marked := false
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, pageMarker) {
			pages = append(pages, models.Page{Index: len(pages)})
			current = len(pages) - 1
			marked = true
			continue
		}
		if current < 0 {
			pages = append(pages, models.Page{Index: 0})
			current = 0
		}

		p := &pages[current]
		words := strings.Fields(line)
		if marked && len(words) == 2 {
			if rank, err := strconv.Atoi(words[0]); err == nil {
				p.Tokens = append(p.Tokens, models.Token{
					Page: p.Index,
					Seq:  len(p.Tokens),
					Text: words[1],
					Rank: rank,
				})
				continue
			}
		}
		for _, w := range words {
			p.Tokens = append(p.Tokens, models.Token{Page: p.Index, Seq: len(p.Tokens), Text: w, Rank: len(p.Tokens)})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", lineNo, err)
	}
	return pages, nil
}

// WriteDump writes pages in the form ReadDump understands.
func WriteDump(w io.Writer, pages ...models.Page) error {
	bw := bufio.NewWriter(w)
	for _, p := range pages {
		fmt.Fprintf(bw, "%s %d\n", pageMarker, p.Index)
		for _, t := range p.Tokens {
			fmt.Fprintf(bw, "%d %s\n", t.Rank, t.Text)
		}
	}
	return bw.Flush()
}
