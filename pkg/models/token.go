package models

// Token is one reading-order text fragment of a page, as produced by a token source.
type Token struct {
	Page int    // zero-based page index
	Seq  int    // position in the page's token sequence
	Text string // word text
	Rank int    // reading-order rank reported by the source
}

// Page is the ordered token sequence of one physical page.
type Page struct {
	Index  int
	Tokens []Token
}

// NewPage builds a page from plain words, numbering them in order.
func NewPage(index int, words ...string) Page {
	tokens := make([]Token, len(words))
	for i, w := range words {
		tokens[i] = Token{Page: index, Seq: i, Text: w, Rank: i}
	}
	return Page{Index: index, Tokens: tokens}
}

// Texts returns the token texts of the page.
func (p Page) Texts() []string {
	out := make([]string, len(p.Tokens))
	for i, t := range p.Tokens {
		out[i] = t.Text
	}
	return out
}
