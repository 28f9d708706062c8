package ledger

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/Windi-Fikriyansyah/topup_be/internal/models"
)

var csvHeader = []string{"ID", "Tanggal", "Pembeli", "Produk", "Jumlah", "Status"}

// ExportCSV writes one row per transaction. Fields are quoted as needed, so
// names and products containing commas stay in their column.
func ExportCSV(w io.Writer, txs []models.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range txs {
		row := []string{
			t.ID,
			t.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			t.UserName,
			t.ProductName,
			strconv.FormatInt(t.Amount, 10),
			string(t.Status),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
