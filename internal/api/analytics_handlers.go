package api

import "net/http"

// HandleAnalytics returns the analytics payload
func (s *RESTServer) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.analytics.Analytics(r.Context()))
}

// HandleAnalyticsSummary returns headline numbers
func (s *RESTServer) HandleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.analytics.Summary(r.Context()))
}
