package handler

import (
	"net/http"

	"github.com/crewdesk/console/internal/domain"
)

const defaultNotificationLimit = 20

// ListNotifications handles GET /notifications.
// Returns the most recent notifications, newest first; ?limit= caps the count.
func (s *Server) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	n := defaultNotificationLimit
	if limit != nil && *limit > 0 {
		n = *limit
	}

	items := s.notifications.Recent(n)
	if items == nil {
		items = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Notification]{Data: items})
}
