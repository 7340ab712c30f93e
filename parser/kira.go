package parser

import (
	"fmt"

	"bitbucket.org/kiranetwork/recon_backend/models"
	"bitbucket.org/kiranetwork/recon_backend/utils"
	"github.com/shopspring/decimal"
)

// KiraParser reads Kira platform exports. Payment methods are stored
// raw; channel normalization happens at aggregation time so the source
// rows stay a faithful copy of the file.
type KiraParser struct{}

func (KiraParser) Source() models.TransactionSource { return models.SourceKira }

func (KiraParser) Parse(filename string, data []byte) ([]RowResult[models.KiraTransaction], error) {
	grid, err := readGrid(filename, data)
	if err != nil {
		return nil, utils.NewExternalIOError("read "+filename, err)
	}

	headerAt := findHeaderRow(grid, func(idx map[string]int) bool {
		_, hasId := findColumn(idx, "transaction id", "transactionid")
		_, hasAmount := findColumn(idx, "transaction amount", "transactionamount")
		return hasId && hasAmount
	})
	if headerAt < 0 {
		return nil, utils.NewParseError(filename, 0, "no header row with Transaction ID and Transaction Amount")
	}

	idx := columnIndex(grid[headerAt])
	idCol, _ := findColumn(idx, "transaction id", "transactionid")
	amountCol, _ := findColumn(idx, "transaction amount", "transactionamount")
	dateCol, hasDate := findColumn(idx, "created on", "createdon", "transaction date", "date")
	methodCol, _ := findColumn(idx, "payment method", "paymentmethod")
	merchantCol, hasMerchant := findColumn(idx, "merchant")
	mdrCol, hasMdr := findColumn(idx, "mdr")
	settlementCol, hasSettlement := findColumn(idx, "settlement amount", "settlementamount")

	if !hasDate {
		return nil, utils.NewParseError(filename, headerAt+1, "no date column")
	}

	results := make([]RowResult[models.KiraTransaction], 0, len(grid)-headerAt-1)
	seen := make(map[string]struct{})
	for i := headerAt + 1; i < len(grid); i++ {
		row := grid[i]
		if rowIsEmpty(row) {
			continue
		}
		rowNum := i + 1

		id := cell(row, idCol)
		if id == "" {
			results = append(results, badRow[models.KiraTransaction](
				utils.NewParseError(filename, rowNum, "empty transaction id")))
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}

		date, err := utils.ParseDateOnly(cell(row, dateCol))
		if err != nil {
			results = append(results, badRow[models.KiraTransaction](
				utils.NewParseError(filename, rowNum, err.Error())))
			continue
		}
		amount, err := utils.ParseFlexibleDecimal(cell(row, amountCol))
		if err != nil {
			results = append(results, badRow[models.KiraTransaction](
				utils.NewParseError(filename, rowNum, fmt.Sprintf("bad amount: %v", err))))
			continue
		}

		tx := models.KiraTransaction{
			TransactionId:   id,
			TransactionDate: models.NewDateOnly(date),
			Amount:          amount,
			PaymentMethod:   cell(row, methodCol),
		}
		if hasMerchant {
			tx.Merchant = cell(row, merchantCol)
		}
		if hasMdr {
			tx.Mdr = optionalDecimal(cell(row, mdrCol))
		}
		if hasSettlement {
			tx.SettlementAmount = optionalDecimal(cell(row, settlementCol))
		}

		seen[id] = struct{}{}
		results = append(results, okRow(tx))
	}
	return results, nil
}

// optionalDecimal parses a cell that may legitimately be blank.
// Unparseable non-blank values also come back nil; the mandatory
// amount column is the one that fails a row.
func optionalDecimal(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	d, err := utils.ParseFlexibleDecimal(s)
	if err != nil {
		return nil
	}
	return &d
}
