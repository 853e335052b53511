package services

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/osvaldoandrade/quotegen/pkg/domain"
)

type RowSelector interface {
	// Select returns one row drawn uniformly from rows and its index.
	Select(rows []domain.Row) (domain.Row, int, error)
}

type rowSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRowSelector(rng *rand.Rand) RowSelector {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &rowSelector{rng: rng}
}

func (s *rowSelector) Select(rows []domain.Row) (domain.Row, int, error) {
	if len(rows) == 0 {
		return domain.Row{}, -1, fmt.Errorf("%w: no rows to select from", domain.ErrEmptyDataset)
	}
	s.mu.Lock()
	idx := s.rng.Intn(len(rows))
	s.mu.Unlock()
	return rows[idx], idx, nil
}
