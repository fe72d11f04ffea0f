package store

import (
	"sort"

	apperrors "crude-trader/internal/errors"
	"crude-trader/internal/models"
)

// Sanitize orders bars by timestamp, keeps the first of any duplicated
// timestamp and drops rows with non-finite prices or negative volume.
// An empty result is an error since nothing downstream can run on it.
func Sanitize(symbol string, bars []models.Bar) ([]models.Bar, error) {
	clean := make([]models.Bar, 0, len(bars))
	for _, b := range bars {
		if !b.Finite() || b.Volume < 0 || b.OI < 0 {
			continue
		}
		clean = append(clean, b)
	}

	sort.SliceStable(clean, func(i, j int) bool {
		return clean[i].Timestamp.Before(clean[j].Timestamp)
	})

	deduped := clean[:0]
	for _, b := range clean {
		if len(deduped) > 0 && b.Timestamp.Equal(deduped[len(deduped)-1].Timestamp) {
			continue
		}
		deduped = append(deduped, b)
	}

	if len(deduped) == 0 {
		return nil, apperrors.NewDataError(symbol, "no usable bars after sanitization", apperrors.ErrNoData)
	}
	return deduped, nil
}
