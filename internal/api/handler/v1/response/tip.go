package response

import "github.com/tipdrop/tipdrop-api/internal/domain"

// TipCreatedResponse carries the pending tip together with the gateway
// client secret the frontend needs to complete the payment.
type TipCreatedResponse struct {
	Tip          domain.Tip `json:"tip"`
	ClientSecret string     `json:"client_secret"`
}

type TipDetailsResponse struct {
	Tip         domain.Tip             `json:"tip"`
	Allocations []domain.TipAllocation `json:"allocations"`
}
