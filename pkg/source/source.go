// Package source turns statement files into pages of reading-order tokens.
package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/yurifrl/brokerfacts/pkg/models"
)

// Document is an open statement. Pages are numbered from zero.
type Document interface {
	NumPages() int
	Page(i int) (models.Page, error)
	Close() error
}

// Opener opens a document by path.
type Opener interface {
	Open(path string) (Document, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(path string) (Document, error)

func (f OpenerFunc) Open(path string) (Document, error) {
	return f(path)
}

type FileType string

const (
	PDF   FileType = "pdf"
	XLS   FileType = "xls"
	XLSX  FileType = "xlsx"
	Dump  FileType = "tokens"
	Plain FileType = "txt"
)

var ErrUnknownType = errors.New("unknown file type")

// DetectType picks a reader from the file extension.
func DetectType(filename string) FileType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return PDF
	case ".xls":
		return XLS
	case ".xlsx":
		return XLSX
	case ".tokens":
		return Dump
	case ".txt":
		return Plain
	}
	return ""
}

// Supported reports whether filename has an extension a reader exists for.
func Supported(filename string) bool {
	return DetectType(filename) != ""
}

// Files opens documents from disk, dispatching on the extension.
type Files struct {
	logger *log.Logger
	// Charset is passed to the legacy XLS reader.
	Charset string
}

func NewFiles(logger *log.Logger, charset string) *Files {
	if charset == "" {
		charset = "cp1252"
	}
	return &Files{logger: logger, Charset: charset}
}

func (f *Files) Open(path string) (Document, error) {
	fileType := DetectType(path)
	f.logger.Debug("detected file type", "type", fileType, "file", path)

	switch fileType {
	case PDF:
		return OpenPDF(path)
	case XLS:
		return OpenXLS(path, f.Charset)
	case XLSX:
		return OpenXLSX(path)
	case Dump, Plain:
		return OpenDump(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, filepath.Base(path))
	}
}

// Pages is an in-memory Document.
type Pages []models.Page

func (p Pages) NumPages() int { return len(p) }

func (p Pages) Page(i int) (models.Page, error) {
	if i < 0 || i >= len(p) {
		return models.Page{}, fmt.Errorf("page %d out of range [0,%d)", i, len(p))
	}
	return p[i], nil
}

func (p Pages) Close() error { return nil }

// ReadAll loads every page of doc.
func ReadAll(doc Document) ([]models.Page, error) {
	pages := make([]models.Page, 0, doc.NumPages())
	for i := 0; i < doc.NumPages(); i++ {
		p, err := doc.Page(i)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, nil
}
