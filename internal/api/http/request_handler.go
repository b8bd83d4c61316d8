package http

import (
	"net/http"

	"ridepool-backend/internal/domain"
)

type bidRequest struct {
	BidPrice float64 `json:"bid_price"`
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	rideID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req bidRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.services.Request.CreateRequest(r.Context(), s.callerID(r), rideID, req.BidPrice)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListRideRequests(w http.ResponseWriter, r *http.Request) {
	rideID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := s.services.Request.ListForRide(r.Context(), s.callerID(r), rideID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.RideRequest{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleListMyRequests(w http.ResponseWriter, r *http.Request) {
	list, err := s.services.Request.ListMine(r.Context(), s.callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.RideRequestWithRide{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpdateRequestStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.services.Request.Transition(r.Context(), id, domain.RideRequestStatus(req.Status), s.callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
