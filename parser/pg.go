package parser

import (
	"fmt"
	"regexp"
	"strings"

	"bitbucket.org/kiranetwork/recon_backend/models"
	"bitbucket.org/kiranetwork/recon_backend/utils"
)

// PGParser reads payment gateway exports. The razer portal ships two
// layouts (fpx and per-channel ewallet files, channel encoded in the
// filename); the fiuu portal ships one layout with a channel column.
// Layout is detected from the header so a renamed file still parses.
type PGParser struct{}

func (PGParser) Source() models.TransactionSource { return models.SourceGateway }

var ewalletSlugRegex = regexp.MustCompile(`_ewallet_([a-z_]+)_\d{4}`)

// channelParenRegex pulls the channel word out of fiuu's verbose
// "payment channels" cells, e.g. "Malaysia TNG (MYR)".
var channelParenRegex = regexp.MustCompile(`\s+(\w+)\s*\(`)

type pgLayout struct {
	idCol     int
	dateCol   int
	amountCol int
	// channelCol < 0 means the whole file is one channel.
	channelCol int
	channel    string
}

func detectPGLayout(filename string, grid [][]string) (int, pgLayout, bool) {
	lower := strings.ToLower(filename)

	headerAt := findHeaderRow(grid, func(idx map[string]int) bool {
		_, hasOrderNo := findColumn(idx, "merchantorderno", "merchant order no")
		_, hasOrderNumber := findColumn(idx, "order number", "ordernumber")
		return hasOrderNo || hasOrderNumber
	})
	if headerAt < 0 {
		return -1, pgLayout{}, false
	}
	idx := columnIndex(grid[headerAt])

	if i, ok := findColumn(idx, "merchantorderno", "merchant order no"); ok {
		if dateCol, hasCreated := findColumn(idx, "createddate", "created date"); hasCreated {
			amountCol, hasAmount := findColumn(idx, "transactionamount", "transaction amount")
			if hasAmount {
				return headerAt, pgLayout{idCol: i, dateCol: dateCol, amountCol: amountCol, channelCol: -1, channel: "FPX"}, true
			}
		}
		dateCol, hasDate := findColumn(idx, "date")
		amountCol, hasAmount := findColumn(idx, "amount")
		if hasDate && hasAmount {
			return headerAt, pgLayout{idCol: i, dateCol: dateCol, amountCol: amountCol, channelCol: -1, channel: channelFromEwalletFilename(lower)}, true
		}
	}

	if i, ok := findColumn(idx, "order number", "ordernumber"); ok {
		dateCol, hasDate := findColumn(idx, "payment time", "paymenttime")
		amountCol, hasAmount := findColumn(idx, "payment amount", "paymentamount")
		channelCol, hasChannel := findColumn(idx, "payment channels", "payment channel", "paymentchannels")
		if hasDate && hasAmount && hasChannel {
			return headerAt, pgLayout{idCol: i, dateCol: dateCol, amountCol: amountCol, channelCol: channelCol}, true
		}
	}

	return -1, pgLayout{}, false
}

func channelFromEwalletFilename(lower string) string {
	m := ewalletSlugRegex.FindStringSubmatch(lower)
	if m == nil {
		return "ewallet"
	}
	return strings.ReplaceAll(m[1], "_", " ")
}

func extractChannelCell(value string) string {
	if m := channelParenRegex.FindStringSubmatch(value); m != nil {
		return m[1]
	}
	return strings.TrimSpace(value)
}

func (PGParser) Parse(filename, platform, accountLabel string, data []byte) ([]RowResult[models.PGTransaction], error) {
	grid, err := readGrid(filename, data)
	if err != nil {
		return nil, utils.NewExternalIOError("read "+filename, err)
	}

	headerAt, layout, ok := detectPGLayout(filename, grid)
	if !ok {
		return nil, utils.NewParseError(filename, 0, "unrecognized gateway export layout")
	}

	results := make([]RowResult[models.PGTransaction], 0, len(grid)-headerAt-1)
	seen := make(map[string]struct{})
	for i := headerAt + 1; i < len(grid); i++ {
		row := grid[i]
		if rowIsEmpty(row) {
			continue
		}
		rowNum := i + 1

		id := cell(row, layout.idCol)
		if id == "" {
			results = append(results, badRow[models.PGTransaction](
				utils.NewParseError(filename, rowNum, "empty transaction id")))
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}

		date, err := utils.ParseDateOnly(cell(row, layout.dateCol))
		if err != nil {
			results = append(results, badRow[models.PGTransaction](
				utils.NewParseError(filename, rowNum, err.Error())))
			continue
		}
		amount, err := utils.ParseFlexibleDecimal(cell(row, layout.amountCol))
		if err != nil {
			results = append(results, badRow[models.PGTransaction](
				utils.NewParseError(filename, rowNum, fmt.Sprintf("bad amount: %v", err))))
			continue
		}

		channel := layout.channel
		if layout.channelCol >= 0 {
			channel = extractChannelCell(cell(row, layout.channelCol))
		}

		seen[id] = struct{}{}
		results = append(results, okRow(models.PGTransaction{
			TransactionId:   id,
			TransactionDate: models.NewDateOnly(date),
			Amount:          amount,
			Platform:        platform,
			Channel:         channel,
			AccountLabel:    accountLabel,
		}))
	}
	return results, nil
}
