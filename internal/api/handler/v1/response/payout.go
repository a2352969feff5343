package response

import "github.com/tipdrop/tipdrop-api/internal/domain"

type BalanceResponse struct {
	StaffID uint  `json:"staff_id"`
	Balance int64 `json:"balance"`
}

type ReconciliationResponse struct {
	StaffID   uint  `json:"staff_id"`
	Previous  int64 `json:"previous"`
	Corrected int64 `json:"corrected"`
	Delta     int64 `json:"delta"`
}

func NewReconciliationResponse(res domain.ReconciliationResult) ReconciliationResponse {
	return ReconciliationResponse{
		StaffID:   res.StaffID,
		Previous:  res.Previous,
		Corrected: res.Corrected,
		Delta:     res.Delta,
	}
}
