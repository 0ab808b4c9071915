package handlers

import (
	"net/http"

	"transporter-dashboard/internal/notifications"
	"transporter-dashboard/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// GetNotifications lists the active notifications visible to the user, newest first
// GET /api/notifications
func GetNotifications(center *notifications.Center) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := userID(r)
		visible := []notifications.Notification{}
		for _, n := range center.List() {
			if n.UserID == "" || n.UserID == id {
				visible = append(visible, n)
			}
		}
		utils.RespondData(w, http.StatusOK, visible)
	}
}

// DismissNotification removes one notification
// DELETE /api/notifications/{id}
func DismissNotification(center *notifications.Center) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		center.Remove(chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

// ClearNotifications removes every notification
// DELETE /api/notifications
func ClearNotifications(center *notifications.Center) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		center.ClearAll()
		w.WriteHeader(http.StatusNoContent)
	}
}
