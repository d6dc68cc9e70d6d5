package bar

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
)

// Row is the on-disk bar representation shared by the CSV and Parquet
// loaders. Timestamps are unix milliseconds.
type Row struct {
	Timestamp int64   `json:"t" parquet:"t"`
	Open      float64 `json:"o" parquet:"o"`
	High      float64 `json:"h" parquet:"h"`
	Low       float64 `json:"l" parquet:"l"`
	Close     float64 `json:"c" parquet:"c"`
	Volume    float64 `json:"v" parquet:"v"`
	Bid       float64 `json:"b" parquet:"b"`
	Ask       float64 `json:"a" parquet:"a"`
}

// Bar converts the raw row into a validated bar
func (r Row) Bar() (Bar, error) {
	return New(
		time.UnixMilli(r.Timestamp).UTC(),
		decimal.NewFromFloat(r.Open),
		decimal.NewFromFloat(r.High),
		decimal.NewFromFloat(r.Low),
		decimal.NewFromFloat(r.Close),
		decimal.NewFromFloat(r.Volume),
		decimal.NewFromFloat(r.Bid),
		decimal.NewFromFloat(r.Ask),
	)
}

// LoadParquet reads a parquet file of bar rows into a stream
func LoadParquet(path string) (*Stream, error) {
	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return rowsToStream(rows)
}

// LoadCSV reads a headerless CSV of
// timestamp-ms,open,high,low,close,volume,bid,ask rows into a stream
func LoadCSV(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	rows := make([]Row, 0, len(records))
	for i, rec := range records {
		if len(rec) != 8 {
			return nil, fmt.Errorf("%s line %d: expected 8 fields, got %d", path, i+1, len(rec))
		}
		ts, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+1, err)
		}
		vals := make([]float64, 7)
		for j := range vals {
			vals[j], err = strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, i+1, err)
			}
		}
		rows = append(rows, Row{
			Timestamp: ts,
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
			Bid:       vals[5],
			Ask:       vals[6],
		})
	}
	return rowsToStream(rows)
}

func rowsToStream(rows []Row) (*Stream, error) {
	bars := make([]Bar, 0, len(rows))
	for i := range rows {
		b, err := rows[i].Bar()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		bars = append(bars, b)
	}
	return NewStream(bars)
}
