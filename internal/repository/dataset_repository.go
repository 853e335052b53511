package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/osvaldoandrade/quotegen/internal/providers"
	"github.com/osvaldoandrade/quotegen/pkg/domain"
)

type DatasetRepository interface {
	// Load fetches bucket/key and returns its Character and Quote columns in
	// file order.
	Load(ctx context.Context, bucket, key string) ([]domain.Row, error)
}

type datasetRepo struct {
	store providers.ObjectStore
}

func NewDatasetRepository(store providers.ObjectStore) DatasetRepository {
	return &datasetRepo{store: store}
}

func (r *datasetRepo) Load(ctx context.Context, bucket, key string) ([]domain.Row, error) {
	data, err := r.store.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	return ParseRows(data)
}

// ParseRows reads delimited data with a header line and keeps the Character
// and Quote columns. Other columns are ignored.
func ParseRows(data []byte) ([]domain.Row, error) {
	rd := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	rd.FieldsPerRecord = -1

	header, err := rd.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header", domain.ErrParse)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", domain.ErrParse, err)
	}

	charIdx, quoteIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case domain.ColumnCharacter:
			if charIdx < 0 {
				charIdx = i
			}
		case domain.ColumnQuote:
			if quoteIdx < 0 {
				quoteIdx = i
			}
		}
	}
	var missing []string
	if charIdx < 0 {
		missing = append(missing, domain.ColumnCharacter)
	}
	if quoteIdx < 0 {
		missing = append(missing, domain.ColumnQuote)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing column(s) %s", domain.ErrParse, strings.Join(missing, ", "))
	}

	need := max(charIdx, quoteIdx) + 1
	var rows []domain.Row
	for {
		rec, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
		}
		if len(rec) < need {
			line, _ := rd.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d: expected at least %d fields, got %d", domain.ErrParse, line, need, len(rec))
		}
		rows = append(rows, domain.Row{Character: rec[charIdx], Quote: rec[quoteIdx]})
	}
	return rows, nil
}
