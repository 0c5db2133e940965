package engagement

import (
	"net/http"
	"strings"
	"time"

	engagementsvc "github.com/angelmondragon/pricesheets-backend/internal/engagement"
	pkgerrors "github.com/angelmondragon/pricesheets-backend/pkg/errors"
)

var timeNowUTC = func() time.Time {
	return time.Now().UTC()
}

// resolveRange reads either an explicit from/to pair (RFC3339) or a preset.
func resolveRange(r *http.Request, now time.Time) (engagementsvc.Range, error) {
	query := r.URL.Query()
	from := strings.TrimSpace(query.Get("from"))
	to := strings.TrimSpace(query.Get("to"))

	if from != "" || to != "" {
		if from == "" || to == "" {
			return engagementsvc.Range{}, pkgerrors.New(pkgerrors.CodeValidation, "from and to must be provided together")
		}
		start, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return engagementsvc.Range{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid from timestamp")
		}
		end, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return engagementsvc.Range{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid to timestamp")
		}
		return engagementsvc.Range{Start: start.UTC(), End: end.UTC()}, nil
	}

	duration, ok := presetDuration(strings.TrimSpace(query.Get("preset")))
	if !ok {
		return engagementsvc.Range{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid preset")
	}
	return engagementsvc.Range{Start: now.Add(-duration), End: now}, nil
}

func presetDuration(value string) (time.Duration, bool) {
	if value == "" {
		value = "30d"
	}
	switch strings.ToLower(value) {
	case "7d":
		return 7 * 24 * time.Hour, true
	case "30d":
		return 30 * 24 * time.Hour, true
	case "90d":
		return 90 * 24 * time.Hour, true
	default:
		return 0, false
	}
}
