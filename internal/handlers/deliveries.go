package handlers

import (
	"log"
	"net/http"

	"transporter-dashboard/internal/models"
	"transporter-dashboard/internal/queries"
	"transporter-dashboard/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// LogDelivery records the delivery of a request together with its driver ratings
// POST /api/deliveries/{requestId}/log
func LogDelivery(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := chi.URLParam(r, "requestId")

		var in models.LogDeliveryInput
		if !decodeBody(w, r, &in) {
			return
		}

		log.Printf("📥 REQUEST: POST /api/deliveries/%s/log (%d driver(s))", requestID, len(in.Drivers))
		d, err := q.LogDelivery(r.Context(), requestID, in)
		if err != nil {
			log.Printf("❌ Error logging delivery for request %s: %v", requestID, err)
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondData(w, http.StatusCreated, d)
	}
}

// ConfirmDelivery marks a logged delivery as complete
// POST /api/deliveries/{requestId}/confirm
func ConfirmDelivery(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := chi.URLParam(r, "requestId")
		if err := q.ConfirmDelivery(r.Context(), requestID); err != nil {
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondData(w, http.StatusOK, map[string]string{"requestId": requestID})
	}
}

// GetDeliveryForEdit returns the logged delivery of a request with its driver ratings
// GET /api/requests/{id}/delivery
func GetDeliveryForEdit(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := q.DeliveryForEdit(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondData(w, http.StatusOK, d)
	}
}

// UpdateDelivery amends an already logged delivery and re-rates its drivers
// PUT /api/requests/{id}/delivery/{deliveryId}
func UpdateDelivery(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := chi.URLParam(r, "id")
		deliveryID := chi.URLParam(r, "deliveryId")

		var in models.UpdateDeliveryInput
		if !decodeBody(w, r, &in) {
			return
		}
		d, err := q.UpdateDelivery(r.Context(), requestID, deliveryID, in)
		if err != nil {
			log.Printf("❌ Error updating delivery %s: %v", deliveryID, err)
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondData(w, http.StatusOK, d)
	}
}
