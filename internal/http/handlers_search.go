package http

import "net/http"

func (s *Server) handleSearchCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.search.SearchCategories(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleSearchMerchants(w http.ResponseWriter, r *http.Request) {
	merchants, err := s.search.SearchMerchants(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, merchants)
}
