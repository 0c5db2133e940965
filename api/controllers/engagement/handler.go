package engagement

import (
	"net/http"

	"github.com/angelmondragon/pricesheets-backend/api/middleware"
	"github.com/angelmondragon/pricesheets-backend/api/responses"
	engagementsvc "github.com/angelmondragon/pricesheets-backend/internal/engagement"
	pkgerrors "github.com/angelmondragon/pricesheets-backend/pkg/errors"
	"github.com/angelmondragon/pricesheets-backend/pkg/logger"
)

// Summary returns send and view rollups for the signed-in owner.
func Summary(svc engagementsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "engagement service unavailable"))
			return
		}

		rng, err := resolveRange(r, timeNowUTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summarize(r.Context(), middleware.OwnerIDFromContext(r.Context()), rng)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
