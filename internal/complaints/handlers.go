package complaints

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/citysafe/citysafe-backend/internal/db"
	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
)

func NeighborhoodListHandler(w http.ResponseWriter, r *http.Request) {
	var neighborhoods []Neighborhood

	if err := db.DB.Order("name").Find(&neighborhoods).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(neighborhoods); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func CreateNeighborhoodHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name    string `json:"name"`
		Borough string `json:"borough"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if input.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}
	if input.Borough == "" {
		input.Borough = "Unknown"
	}

	n := Neighborhood{Name: input.Name, Borough: input.Borough}
	if err := db.DB.Create(&n).Error; err != nil {
		http.Error(w, "Failed to create neighborhood", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"message": "Neighborhood created", "id": n.ID})
}

// NeighborhoodStatsHandler returns per-neighborhood complaint counts,
// including neighborhoods with zero complaints.
func NeighborhoodStatsHandler(w http.ResponseWriter, r *http.Request) {
	var stats []struct {
		ID      uint   `json:"id"`
		Name    string `json:"name"`
		Borough string `json:"borough"`
		Count   int64  `json:"count"`
	}

	err := db.DB.Raw(`
		SELECT n.id, n.name, n.borough, COUNT(c.id) AS count
		FROM neighborhoods n
		LEFT JOIN complaints c ON c.neighborhood_id = n.id
		GROUP BY n.id, n.name, n.borough
		ORDER BY count DESC
	`).Scan(&stats).Error
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// CrimeTypeHandler returns the offense-description distribution for one
// neighborhood, most frequent first.
func CrimeTypeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid neighborhood id", http.StatusBadRequest)
		return
	}

	var n Neighborhood
	if err := db.DB.First(&n, id).Error; err != nil {
		http.Error(w, "Neighborhood not found", http.StatusNotFound)
		return
	}

	var dist []struct {
		OfnsDesc string `json:"ofns_desc"`
		Count    int64  `json:"count"`
	}
	err = db.DB.Raw(`
		SELECT ofns_desc, COUNT(*) AS count
		FROM complaints
		WHERE neighborhood_id = ? AND ofns_desc <> ''
		GROUP BY ofns_desc
		ORDER BY count DESC
	`, id).Scan(&dist).Error
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"neighborhood": n,
		"crime_types":  dist,
	})
}

// ComplaintListHandler lists complaints in a summary shape. Repeated ?ofns=
// params filter by offense description; ?limit= caps the result (default
// 1000, the table holds hundreds of thousands of rows).
func ComplaintListHandler(w http.ResponseWriter, r *http.Request) {
	limit := 1000
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 10000 {
			limit = n
		}
	}

	q := db.DB.Preload("Neighborhood").Order("id").Limit(limit)
	if ofns := r.URL.Query()["ofns"]; len(ofns) > 0 {
		q = q.Where("ofns_desc = ANY(?)", pq.Array(ofns))
	}

	var rows []Complaint
	if err := q.Find(&rows).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	type neighborhoodOut struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	}
	type complaintOut struct {
		ID           uint             `json:"id"`
		CmplntNum    string           `json:"cmplnt_num"`
		BoroNm       string           `json:"boro_nm"`
		OfnsDesc     string           `json:"ofns_desc"`
		LawCatCd     string           `json:"law_cat_cd"`
		Latitude     *float64         `json:"latitude"`
		Longitude    *float64         `json:"longitude"`
		Neighborhood *neighborhoodOut `json:"neighborhood"`
	}

	out := make([]complaintOut, 0, len(rows))
	for _, c := range rows {
		o := complaintOut{
			ID:        c.ID,
			CmplntNum: c.CmplntNum,
			BoroNm:    c.BoroNm,
			OfnsDesc:  c.OfnsDesc,
			LawCatCd:  c.LawCatCd,
			Latitude:  c.Latitude,
			Longitude: c.Longitude,
		}
		if c.Neighborhood != nil {
			o.Neighborhood = &neighborhoodOut{ID: c.Neighborhood.ID, Name: c.Neighborhood.Name}
		}
		out = append(out, o)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func CreateComplaintHandler(w http.ResponseWriter, r *http.Request) {
	var c Complaint
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if c.CmplntNum == "" {
		http.Error(w, "cmplnt_num is required", http.StatusBadRequest)
		return
	}

	c.ID = 0
	c.Neighborhood = nil
	if err := db.DB.Create(&c).Error; err != nil {
		http.Error(w, "Failed to create complaint", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"message": "Complaint created", "id": c.ID})
}
