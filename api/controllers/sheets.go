package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/pricesheets-backend/api/middleware"
	"github.com/angelmondragon/pricesheets-backend/api/responses"
	"github.com/angelmondragon/pricesheets-backend/api/validators"
	"github.com/angelmondragon/pricesheets-backend/internal/publicview"
	pkgerrors "github.com/angelmondragon/pricesheets-backend/pkg/errors"
	"github.com/angelmondragon/pricesheets-backend/pkg/logger"
)

const tokenQueryParam = "c"

// PublicSheet renders a document for whoever holds the link. Pricing is only
// shown when the c parameter carries a token minted for that document.
func PublicSheet(svc publicview.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sheet service unavailable"))
			return
		}

		documentID, err := validators.ParseUUIDParam(r, "documentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.ResolveView(r.Context(), publicview.ViewRequest{
			DocumentID: documentID,
			Token:      strings.TrimSpace(r.URL.Query().Get(tokenQueryParam)),
			Preview:    validators.ParseQueryBool(r, "preview"),
			Meta:       requestMeta(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		responses.WriteSuccess(w, view)
	}
}

// PreviewSheet lets an owner see a document as a given recipient would,
// without recording a view.
func PreviewSheet(svc publicview.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sheet service unavailable"))
			return
		}

		documentID, err := validators.ParseUUIDParam(r, "documentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ownerID := middleware.OwnerIDFromContext(r.Context())
		view, err := svc.ResolveView(r.Context(), publicview.ViewRequest{
			DocumentID: documentID,
			Token:      strings.TrimSpace(r.URL.Query().Get(tokenQueryParam)),
			Preview:    true,
			OwnerID:    &ownerID,
			Meta:       requestMeta(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		responses.WriteSuccess(w, view)
	}
}

func requestMeta(r *http.Request) publicview.RequestMeta {
	return publicview.RequestMeta{
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
	}
}
