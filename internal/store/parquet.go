package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"tradewind/internal/domain"
)

// Compile-time interface check.
var _ ObservationStore = (*ParquetStore)(nil)

// ParquetStore implements ObservationStore using Parquet files on disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ObservationRecord is the Parquet schema for price observations.
type ObservationRecord struct {
	InstrumentID string  `parquet:"instrument_id"`
	Timestamp    int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Price        float64 `parquet:"price"`
	Volume       int64   `parquet:"volume"`
}

// WriteObservations writes observations to Parquet files organized by
// instrument and year. Each instrument+year combination produces a separate
// file at:
//
//	<DataDir>/observations/<INSTRUMENT>/<YYYY>.parquet
//
// Writes merge with existing records, deduplicating by timestamp with new
// records preferred.
func (s *ParquetStore) WriteObservations(_ context.Context, obs []domain.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}

	type key struct {
		instrument string
		year       int
	}
	groups := make(map[key][]ObservationRecord)
	for _, o := range obs {
		k := key{instrument: o.InstrumentID, year: o.Timestamp.Year()}
		groups[k] = append(groups[k], ObservationRecord{
			InstrumentID: o.InstrumentID,
			Timestamp:    o.Timestamp.UnixMilli(),
			Price:        o.Price,
			Volume:       o.Volume,
		})
	}

	for k, records := range groups {
		path := s.observationPath(k.instrument, k.year)

		// Read existing records to merge.
		existing, _ := readParquetFile[ObservationRecord](path)
		merged := mergeObservationRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing observations for %s/%d: %w", k.instrument, k.year, err)
		}
	}
	return nil
}

// ReadObservations reads observations for the given instrument and time range.
func (s *ParquetStore) ReadObservations(_ context.Context, instrumentID string, start, end time.Time) ([]domain.PriceObservation, error) {
	var obs []domain.PriceObservation
	for year := start.Year(); year <= end.Year(); year++ {
		path := s.observationPath(instrumentID, year)

		records, err := readParquetFile[ObservationRecord](path)
		if err != nil {
			// No file for this year, skip.
			continue
		}

		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp)
			if (ts.Equal(start) || ts.After(start)) && (ts.Equal(end) || ts.Before(end)) {
				obs = append(obs, domain.PriceObservation{
					InstrumentID: r.InstrumentID,
					Timestamp:    ts,
					Price:        r.Price,
					Volume:       r.Volume,
				})
			}
		}
	}
	return obs, nil
}

// ListInstruments lists all instruments that have stored observations.
func (s *ParquetStore) ListInstruments(_ context.Context) ([]string, error) {
	dir := filepath.Join(s.DataDir, "observations")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var instruments []string
	for _, e := range entries {
		if e.IsDir() {
			instruments = append(instruments, e.Name())
		}
	}
	sort.Strings(instruments)
	return instruments, nil
}

// observationPath returns the filesystem path for an observation Parquet file.
// Layout: <dataDir>/observations/<INSTRUMENT>/<YYYY>.parquet
func (s *ParquetStore) observationPath(instrumentID string, year int) string {
	return filepath.Join(s.DataDir, "observations", strings.ToUpper(instrumentID), fmt.Sprintf("%d.parquet", year))
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeObservationRecords deduplicates records by (instrument, timestamp),
// preferring new records over existing ones. Results are sorted by timestamp.
func mergeObservationRecords(existing, incoming []ObservationRecord) []ObservationRecord {
	type key struct {
		instrument string
		ts         int64
	}
	seen := make(map[key]ObservationRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.InstrumentID, r.Timestamp}] = r
	}
	for _, r := range incoming {
		seen[key{r.InstrumentID, r.Timestamp}] = r
	}

	merged := make([]ObservationRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
