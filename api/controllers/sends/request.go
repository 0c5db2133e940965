package sends

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/pricesheets-backend/internal/distribution"
	"github.com/angelmondragon/pricesheets-backend/internal/pricing"
	"github.com/angelmondragon/pricesheets-backend/pkg/enums"
)

// SendRequest is the body of POST /documents/{documentId}/sends. Overrides map
// recipient id to line item id to a number (price) or string (comment).
type SendRequest struct {
	RecipientIDs     []uuid.UUID                               `json:"recipientIds" validate:"required,min=1,max=500,dive,required"`
	Overrides        map[uuid.UUID]map[string]pricing.Override `json:"overrides,omitempty"`
	PriceBasis       map[uuid.UUID]string                      `json:"priceBasis,omitempty" validate:"omitempty,dive,oneof=FOB DELIVERED"`
	MessageOverrides map[uuid.UUID]MessageOverrideRequest      `json:"messageOverrides,omitempty" validate:"omitempty,dive"`
}

type MessageOverrideRequest struct {
	Subject string `json:"subject,omitempty" validate:"omitempty,max=200"`
	Body    string `json:"body,omitempty" validate:"omitempty,max=20000"`
}

func toSendInput(ownerID, documentID uuid.UUID, payload SendRequest) distribution.SendInput {
	input := distribution.SendInput{
		OwnerID:      ownerID,
		DocumentID:   documentID,
		RecipientIDs: payload.RecipientIDs,
		Overrides:    payload.Overrides,
	}
	if len(payload.PriceBasis) > 0 {
		input.PriceBasis = make(map[uuid.UUID]enums.PriceBasis, len(payload.PriceBasis))
		for recipientID, basis := range payload.PriceBasis {
			input.PriceBasis[recipientID] = enums.PriceBasis(basis)
		}
	}
	if len(payload.MessageOverrides) > 0 {
		input.MessageOverrides = make(map[uuid.UUID]distribution.MessageOverride, len(payload.MessageOverrides))
		for recipientID, msg := range payload.MessageOverrides {
			input.MessageOverrides[recipientID] = distribution.MessageOverride{Subject: msg.Subject, Body: msg.Body}
		}
	}
	return input
}
