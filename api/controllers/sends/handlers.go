package sends

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/pricesheets-backend/api/middleware"
	"github.com/angelmondragon/pricesheets-backend/api/responses"
	"github.com/angelmondragon/pricesheets-backend/api/validators"
	"github.com/angelmondragon/pricesheets-backend/internal/distribution"
	pkgerrors "github.com/angelmondragon/pricesheets-backend/pkg/errors"
	"github.com/angelmondragon/pricesheets-backend/pkg/logger"
	"github.com/angelmondragon/pricesheets-backend/pkg/pagination"
)

// CreateSends emails the document to each requested recipient. Per-recipient
// failures are reported in the body; the request itself still succeeds.
func CreateSends(svc distribution.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "send service unavailable"))
			return
		}

		documentID, err := validators.ParseUUIDParam(r, "documentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload SendRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ownerID := middleware.OwnerIDFromContext(r.Context())
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithDocumentID(ctx, documentID.String())
		}
		result, err := svc.Send(ctx, toSendInput(ownerID, documentID, payload))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ListSends pages through the document's send history, newest first.
func ListSends(svc distribution.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "send service unavailable"))
			return
		}

		documentID, err := validators.ParseUUIDParam(r, "documentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListSends(r.Context(), distribution.ListSendsParams{
			OwnerID:    middleware.OwnerIDFromContext(r.Context()),
			DocumentID: documentID,
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
