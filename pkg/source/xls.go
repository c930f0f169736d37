package source

import (
	"fmt"
	"os"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"github.com/yurifrl/brokerfacts/pkg/models"
)

// OpenXLS reads a legacy workbook. Each sheet becomes a page; cells are read row
// by row and split into words.
func OpenXLS(path, charset string) (doc Document, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("malformed workbook: %v", r)
		}
	}()

	workbook, err := xls.OpenReader(f, charset)
	if err != nil {
		return nil, fmt.Errorf("error creating workbook: %w", err)
	}
	// OLE files without a workbook stream yield no error and no workbook
	if workbook == nil {
		return nil, fmt.Errorf("error creating workbook: no workbook stream in %s", path)
	}

	var pages Pages
	for s := 0; s < workbook.NumSheets(); s++ {
		sheet := workbook.GetSheet(s)
		if sheet == nil {
			continue
		}
		var rows [][]string
		for i := 0; i <= int(sheet.MaxRow); i++ {
			row := sheetRow(sheet, i)
			if row == nil {
				continue
			}
			var cells []string
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			rows = append(rows, cells)
		}
		pages = append(pages, gridPage(len(pages), rows))
	}
	return pages, nil
}

// sheetRow returns nil for rows missing from a sparse sheet, where the xls
// package dereferences a nil row.
func sheetRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

// OpenXLSX reads an Office Open XML workbook with the same sheet-per-page mapping.
func OpenXLSX(path string) (Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("error opening workbook: %w", err)
	}
	defer f.Close()

	var pages Pages
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheet, err)
		}
		pages = append(pages, gridPage(len(pages), rows))
	}
	return pages, nil
}

func gridPage(index int, rows [][]string) models.Page {
	var words []string
	for _, row := range rows {
		for _, cell := range row {
			words = append(words, strings.Fields(cell)...)
		}
	}
	return models.NewPage(index, words...)
}
