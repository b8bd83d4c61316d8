package http

import (
	"net/http"
	"strconv"
	"time"

	"ridepool-backend/internal/domain"
)

type rideRequest struct {
	StartLocation domain.Address `json:"start_location"`
	EndLocation   domain.Address `json:"end_location"`
	DateTime      time.Time      `json:"date_time"`
	BasePrice     float64        `json:"base_price"`
	Seats         int32          `json:"seats"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// rideView adds the live seat count to a ride.
type rideView struct {
	domain.Ride
	AvailableSeats int32 `json:"available_seats"`
}

func (s *Server) handleCreateRide(w http.ResponseWriter, r *http.Request) {
	var req rideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ride, err := s.services.Ride.CreateRide(r.Context(), s.callerID(r), domain.RideInput{
		StartLocation: req.StartLocation,
		EndLocation:   req.EndLocation,
		DateTime:      req.DateTime,
		BasePrice:     req.BasePrice,
		Seats:         req.Seats,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ride)
}

func (s *Server) handleListOpenRides(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.RideFilter{Destination: q.Get("destination")}
	if raw := q.Get("date"); raw != "" {
		d, err := parseDate(raw, s.cfg.Location())
		if err != nil {
			writeError(w, r, domain.NewValidationError("Invalid date"))
			return
		}
		filter.Date = &d
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || n < 0 {
			writeError(w, r, domain.NewValidationError("Invalid limit"))
			return
		}
		filter.Limit = int32(n)
	}

	rides, err := s.services.Ride.ListOpenRides(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rides == nil {
		rides = []domain.Ride{}
	}
	writeJSON(w, http.StatusOK, rides)
}

func (s *Server) handleGetRide(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ride, err := s.services.Ride.GetRide(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	free, err := s.services.Ledger.AvailableSeats(r.Context(), ride)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rideView{Ride: *ride, AvailableSeats: free})
}

func (s *Server) handleUpdateRideStatus(w http.ResponseWriter, r *http.Request) {
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
	ride, err := s.services.Ride.UpdateRideStatus(r.Context(), id, domain.RideStatus(req.Status), s.callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleRideHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.services.Ride.RideHistory(r.Context(), s.callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleRecommendedRides(w http.ResponseWriter, r *http.Request) {
	rides, err := s.services.Recommendation.RecommendedRides(r.Context(), s.callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rides)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.services.Ride.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
