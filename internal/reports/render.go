package reports

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"
)

// WriteSalesCSV writes the sales rows with a header line.
func WriteSalesCSV(w io.Writer, report SalesReport) error {
	return gocsv.Marshal(report.Rows, w)
}

// WriteStockCSV writes the stock rows with a header line.
func WriteStockCSV(w io.Writer, report StockReport) error {
	return gocsv.Marshal(report.Rows, w)
}

// Sheet names of the XLSX workbooks.
const (
	SalesSheet = "Sales"
	StockSheet = "Stock"
)

// WriteSalesXLSX renders the sales report as a workbook with a totals footer.
func WriteSalesXLSX(w io.Writer, report SalesReport) error {
	headings := []string{"Sale ID", "Date", "Customer", "Product", "Type", "Quantity", "Unit Price", "Transport Fee", "Total", "Payment Method", "Sales Agent"}
	rows := make([][]any, 0, len(report.Rows)+3)
	for _, r := range report.Rows {
		rows = append(rows, []any{r.SaleID, r.Date, r.Customer, r.Product, r.Type, r.Quantity, r.UnitPrice, r.TransportFee, r.Total, r.PaymentMethod, r.Agent})
	}
	rows = append(rows,
		[]any{"Revenue", report.Financials.Revenue.StringFixed(2)},
		[]any{"Cost", report.Financials.Cost.StringFixed(2)},
		[]any{"Profit", report.Financials.Profit.StringFixed(2)},
	)
	return writeWorkbook(w, SalesSheet, headings, rows)
}

// WriteStockXLSX renders the stock report as a workbook with a totals footer.
func WriteStockXLSX(w io.Writer, report StockReport) error {
	headings := []string{"Stock ID", "Date", "Product", "Type", "Quantity", "Unit Cost", "Total Cost", "Supplier", "Origin", "Level"}
	rows := make([][]any, 0, len(report.Rows)+1)
	for _, r := range report.Rows {
		rows = append(rows, []any{r.StockID, r.Date, r.Product, r.Type, r.Quantity, r.UnitCost, r.TotalCost, r.Supplier, r.Origin, r.Level})
	}
	rows = append(rows, []any{"Total", "", "", "", report.TotalQuantity, "", report.TotalCost.StringFixed(2)})
	return writeWorkbook(w, StockSheet, headings, rows)
}

func writeWorkbook(w io.Writer, sheet string, headings []string, rows [][]any) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	for col, h := range headings {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("reports: row %d: %w", i+2, err)
		}
	}
	return f.Write(w)
}
