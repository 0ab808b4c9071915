package handlers

import (
	"bytes"
	"fmt"
	"log"
	"net/http"

	"transporter-dashboard/internal/export"
	"transporter-dashboard/internal/models"
	"transporter-dashboard/internal/queries"
	"transporter-dashboard/pkg/utils"
)

// exportLimit caps how many requests one export pulls from the backend
const exportLimit = 1000

func sendWorkbook(w http.ResponseWriter, filename string, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ExportRequests downloads the filtered request list with variance columns
// GET /api/exports/requests.xlsx?search=&status=&priority=
func ExportRequests(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		page, err := q.Requests(r.Context(), models.RequestFilters{
			Search:   query.Get("search"),
			Status:   query.Get("status"),
			Priority: query.Get("priority"),
			Page:     1,
			Limit:    exportLimit,
		})
		if err != nil {
			utils.RespondAPIError(w, err)
			return
		}

		buf, err := export.Requests(page.Data)
		if err != nil {
			log.Printf("❌ Error exporting requests: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to generate export")
			return
		}
		log.Printf("📤 Exported %d request(s)", len(page.Data))
		sendWorkbook(w, fmt.Sprintf("requests-%s.xlsx", now().Format("2006-01-02")), buf)
	}
}

// ExportTransporters downloads the transporter ranking for a range
// GET /api/exports/transporters.xlsx?startDate=&endDate=
func ExportTransporters(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dr, err := dateRange(r)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		rows, err := q.TransporterComparison(r.Context(), dr)
		if err != nil {
			utils.RespondAPIError(w, err)
			return
		}

		buf, err := export.Transporters(rows)
		if err != nil {
			log.Printf("❌ Error exporting transporters: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to generate export")
			return
		}
		sendWorkbook(w, fmt.Sprintf("transporters-%s_%s.xlsx", dr.Start(), dr.End()), buf)
	}
}
