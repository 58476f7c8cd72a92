package store

import (
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"intraday-backtester/internal/errors"
	"intraday-backtester/internal/models"
)

// WriteTrades writes the trade ledger CSV, replacing any existing file.
func WriteTrades(path string, trades []models.TradeRecord) error {
	return writeCSV(path, &trades)
}

// WriteIssues writes the issues/errors CSV, replacing any existing file.
func WriteIssues(path string, issues []models.IssueRecord) error {
	return writeCSV(path, &issues)
}

// ReadTrades loads a trade ledger CSV.
func ReadTrades(path string) ([]models.TradeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening trades file %s", path)
	}
	defer f.Close()

	var trades []models.TradeRecord
	if err := gocsv.UnmarshalFile(f, &trades); err != nil {
		return nil, errors.Wrapf(err, "parsing trades file %s", path)
	}
	return trades, nil
}

// AppendMinutePnL appends rows to a persistent minute-PnL CSV:
// load-existing, concat, rewrite.
func AppendMinutePnL(path string, rows []models.MinutePnLRow) error {
	if len(rows) == 0 {
		return nil
	}

	var existing []models.MinutePnLRow
	if f, err := os.Open(path); err == nil {
		err = gocsv.UnmarshalFile(f, &existing)
		f.Close()
		if err != nil {
			return errors.Wrapf(err, "parsing existing minute pnl file %s", path)
		}
	}

	merged := append(existing, rows...)
	return writeCSV(path, &merged)
}

// AppendMinutePnLIssues appends to the minute-PnL issues CSV.
func AppendMinutePnLIssues(path string, rows []models.MinutePnLIssue) error {
	if len(rows) == 0 {
		return nil
	}

	var existing []models.MinutePnLIssue
	if f, err := os.Open(path); err == nil {
		err = gocsv.UnmarshalFile(f, &existing)
		f.Close()
		if err != nil {
			return errors.Wrapf(err, "parsing existing issues file %s", path)
		}
	}

	merged := append(existing, rows...)
	return writeCSV(path, &merged)
}

func writeCSV(path string, records interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "creating output dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(records, f); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
