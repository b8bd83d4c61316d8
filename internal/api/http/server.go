package http

import (
	"net/http"

	"ridepool-backend/internal/config"
	"ridepool-backend/internal/events"
	"ridepool-backend/internal/security"
	"ridepool-backend/internal/service"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const streamRoute = "/ws/events"

// Services holds the domain services exposed over HTTP
type Services struct {
	Contract       service.ContractService
	Ride           service.RideService
	Request        service.RideRequestService
	Recommendation service.RecommendationService
	Ledger         service.SeatLedger
}

type Server struct {
	services *Services
	tokens   security.TokenManager
	hub      *events.Hub
	cfg      *config.Config
	router   *mux.Router
}

// NewServer builds the router. tokens may be nil when the user header is trusted;
// hub may be nil to disable the event stream.
func NewServer(services *Services, tokens security.TokenManager, hub *events.Hub, cfg *config.Config) *Server {
	s := &Server{
		services: services,
		tokens:   tokens,
		hub:      hub,
		cfg:      cfg,
		router:   mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	if s.hub != nil {
		s.router.HandleFunc(streamRoute, s.handleEventStream).Methods("GET")
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/contracts", s.handleCreateContract).Methods("POST")
	api.HandleFunc("/contracts", s.handleListMyContracts).Methods("GET")
	api.HandleFunc("/contracts/{id}", s.handleGetContract).Methods("GET")
	api.HandleFunc("/contracts/{id}", s.handleUpdateContract).Methods("PATCH")
	api.HandleFunc("/contracts/{id}/join", s.handleJoinContract).Methods("POST")

	// Fixed paths are registered before /rides/{id} so they win the match.
	api.HandleFunc("/rides", s.handleCreateRide).Methods("POST")
	api.HandleFunc("/rides", s.handleListOpenRides).Methods("GET")
	api.HandleFunc("/rides/history", s.handleRideHistory).Methods("GET")
	api.HandleFunc("/rides/recommended", s.handleRecommendedRides).Methods("GET")
	api.HandleFunc("/rides/{id}", s.handleGetRide).Methods("GET")
	api.HandleFunc("/rides/{id}", s.handleUpdateRideStatus).Methods("PATCH")
	api.HandleFunc("/rides/{id}/requests", s.handleCreateRequest).Methods("POST")
	api.HandleFunc("/rides/{id}/requests", s.handleListRideRequests).Methods("GET")

	api.HandleFunc("/requests/mine", s.handleListMyRequests).Methods("GET")
	api.HandleFunc("/requests/{id}", s.handleUpdateRequestStatus).Methods("PATCH")

	api.HandleFunc("/stats", s.handleStats).Methods("GET")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) callerID(r *http.Request) int32 {
	id, _ := UserIDFromContext(r.Context())
	return id
}
