package http

import (
	"net/http"

	"ridepool-backend/internal/domain"
)

type contractRequest struct {
	Name               string                `json:"name"`
	Members            []int32               `json:"members"`
	StartDate          string                `json:"start_date"`
	EndDate            string                `json:"end_date"`
	TotalSeats         int32                 `json:"total_seats"`
	Route              domain.Route          `json:"route"`
	WeeklySchedule     domain.WeeklySchedule `json:"weekly_schedule"`
	AutoPostExtraSeats bool                  `json:"auto_post_extra_seats"`
}

// contractPatch applies whichever fields are present, in field order.
type contractPatch struct {
	Status             *domain.ContractStatus `json:"status,omitempty"`
	AutoPostExtraSeats *bool                  `json:"auto_post_extra_seats,omitempty"`
	WeeklySchedule     domain.WeeklySchedule  `json:"weekly_schedule,omitempty"`
}

func (s *Server) handleCreateContract(w http.ResponseWriter, r *http.Request) {
	var req contractRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	input := domain.ContractInput{
		Name:               req.Name,
		MemberIDs:          req.Members,
		TotalSeats:         req.TotalSeats,
		Route:              req.Route,
		WeeklySchedule:     req.WeeklySchedule,
		AutoPostExtraSeats: req.AutoPostExtraSeats,
	}
	loc := s.cfg.Location()
	var errs []string
	if req.StartDate != "" {
		d, err := parseDate(req.StartDate, loc)
		if err != nil {
			errs = append(errs, "Invalid start date")
		}
		input.StartDate = d
	}
	if req.EndDate != "" {
		d, err := parseDate(req.EndDate, loc)
		if err != nil {
			errs = append(errs, "Invalid end date")
		}
		input.EndDate = d
	}
	if len(errs) > 0 {
		writeError(w, r, domain.NewValidationError(errs...))
		return
	}

	c, err := s.services.Contract.CreateContract(r.Context(), s.callerID(r), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListMyContracts(w http.ResponseWriter, r *http.Request) {
	list, err := s.services.Contract.ListMyContracts(r.Context(), s.callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Contract{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetContract(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.services.Contract.GetContract(r.Context(), id, s.callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateContract(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch contractPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	if patch.Status == nil && patch.AutoPostExtraSeats == nil && patch.WeeklySchedule == nil {
		writeError(w, r, domain.NewValidationError("Nothing to update"))
		return
	}

	ctx, actor := r.Context(), s.callerID(r)
	var c *domain.Contract
	if patch.Status != nil {
		if c, err = s.services.Contract.SetStatus(ctx, id, *patch.Status, actor); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if patch.AutoPostExtraSeats != nil {
		if c, err = s.services.Contract.SetAutoPost(ctx, id, *patch.AutoPostExtraSeats, actor); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if patch.WeeklySchedule != nil {
		if c, err = s.services.Contract.UpdateSchedule(ctx, id, patch.WeeklySchedule, actor); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleJoinContract(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.services.Contract.Join(r.Context(), id, s.callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
