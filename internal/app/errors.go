package service

import (
	"fmt"

	"github.com/okian/matchreport/internal/domain/scoring"
)

// Sentinel kinds for service errors.
var (
	ErrMissingPlayer = fmt.Errorf("%w: player_name is required", scoring.ErrInvalidInput)
	ErrMissingID     = fmt.Errorf("%w: report id is required", scoring.ErrInvalidInput)
)
