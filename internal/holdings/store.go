// Package holdings loads the tracked holdings list from its JSON file.
// The store owns input validation: the tracker core never re-checks the
// fields it reads, so violations must be caught here, before a cycle runs.
package holdings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bobmcallan/stockpit/internal/common"
	"github.com/bobmcallan/stockpit/internal/interfaces"
	"github.com/bobmcallan/stockpit/internal/models"
)

// ErrInvalidHoldingConfig marks a holdings file whose entries fail
// validation. The message lists every violation with its entry index.
var ErrInvalidHoldingConfig = errors.New("invalid holding config")

// Store reads holdings from a JSON file on demand. Each Load re-reads the
// file, so edits between refresh cycles are picked up without a restart.
type Store struct {
	path   string
	logger *common.Logger
}

var _ interfaces.HoldingStore = (*Store)(nil)

// NewStore creates a holdings store for the given file path
func NewStore(path string, logger *common.Logger) *Store {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Store{path: path, logger: logger}
}

// Load reads and validates the holdings file, preserving file order.
// Duplicate codes are passed through: uniqueness is assumed upstream, not
// enforced here.
func (s *Store) Load() ([]models.Holding, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read holdings file %s: %w", s.path, err)
	}

	var list []models.Holding
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse holdings file %s: %w", s.path, err)
	}

	if err := validate(list); err != nil {
		return nil, err
	}

	for i := range list {
		if strings.TrimSpace(list[i].Name) == "" {
			list[i].Name = list[i].Code
		}
	}

	s.logger.Debug().Int("count", len(list)).Str("file", s.path).Msg("Holdings loaded")
	return list, nil
}

func validate(list []models.Holding) error {
	var problems []string
	for i, h := range list {
		if strings.TrimSpace(h.Code) == "" {
			problems = append(problems, fmt.Sprintf("entry %d: code is required", i))
		}
		if h.Quantity == 0 {
			problems = append(problems, fmt.Sprintf("entry %d (%s): quantity must be non-zero", i, h.Code))
		}
		if h.CostPrice <= 0 {
			problems = append(problems, fmt.Sprintf("entry %d (%s): cost_price must be positive", i, h.Code))
		}
		if h.StopLossPct < 0 {
			problems = append(problems, fmt.Sprintf("entry %d (%s): stop_loss_pct must not be negative", i, h.Code))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidHoldingConfig, strings.Join(problems, "; "))
	}
	return nil
}
