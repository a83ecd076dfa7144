package output

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXSheet is the worksheet name used for exports.
const XLSXSheet = "results"

// XLSXFormatter collects records into a workbook and encodes it on Flush.
type XLSXFormatter struct {
	w    io.Writer
	book *excelize.File
	row  int
}

func NewXLSXFormatter(w io.Writer) (*XLSXFormatter, error) {
	book := excelize.NewFile()
	if err := book.SetSheetName(book.GetSheetName(0), XLSXSheet); err != nil {
		return nil, fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	header := make([]interface{}, len(CSVHeader))
	for i, h := range CSVHeader {
		header[i] = h
	}
	if err := book.SetSheetRow(XLSXSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("xlsx: header: %w", err)
	}
	bold, err := book.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = book.SetRowStyle(XLSXSheet, 1, 1, bold)
	}
	if err := book.SetPanes(XLSXSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("xlsx: freeze header: %w", err)
	}
	return &XLSXFormatter{w: w, book: book, row: 1}, nil
}

func (f *XLSXFormatter) Write(rec *Record) error {
	f.row++
	cell, err := excelize.CoordinatesToCellName(1, f.row)
	if err != nil {
		return err
	}
	row := []interface{}{rec.Host, rec.IP, int(rec.Port), rec.Service}
	return f.book.SetSheetRow(XLSXSheet, cell, &row)
}

// Flush encodes the workbook to the underlying writer. Call it once.
func (f *XLSXFormatter) Flush() error {
	defer f.book.Close()
	if err := f.book.Write(f.w); err != nil {
		return fmt.Errorf("xlsx: encode: %w", err)
	}
	return nil
}
