// Package handler implements the HTTP handlers for the mileage tracker API.
// All handlers are methods on Server, which implements gen.StrictServerInterface.
// Methods are split into domain-specific files (health.go, trip.go, auth.go,
// export.go) but all share the same Server struct so they can access its
// dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/mileage-tracker/internal/captcha"
	"github.com/pkordes/mileage-tracker/internal/domain"
	"github.com/pkordes/mileage-tracker/internal/handler/gen"
)

// Tracker is the per-user trip lifecycle the trip handlers drive.
// *service.TripTracker satisfies it.
type Tracker interface {
	StartTrip(ctx context.Context) (domain.TripSession, error)
	EndTrip(ctx context.Context) (domain.Trip, error)
	RefreshHistory(ctx context.Context) error
	History() []domain.Trip
	Status() domain.TrackerStatus
}

// TrackerLookup returns the tracker of a user.
type TrackerLookup func(ctx context.Context, userID string) Tracker

// HistoryServicer serves saved trips.
type HistoryServicer interface {
	Get(ctx context.Context, userID string, id uuid.UUID) (domain.Trip, error)
	Export(ctx context.Context, userID string, filter domain.ExportFilter) (domain.Export, error)
}

// AccountServicer registers users and signs them in and out.
type AccountServicer interface {
	Register(ctx context.Context, email, password string) (domain.User, error)
	SignIn(ctx context.Context, email, password string) (string, time.Time, error)
	SignOut(ctx context.Context, userID string)
}

// CaptchaVerifier checks reCAPTCHA tokens.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token string) (captcha.Result, error)
}

// Deps are the dependencies of Server.
type Deps struct {
	Trackers TrackerLookup
	History  HistoryServicer
	Accounts AccountServicer
	Captcha  CaptchaVerifier
	Rate     domain.Rate
	Logger   *slog.Logger

	// Authenticate guards the operations that declare bearerAuth security.
	Authenticate func(http.Handler) http.Handler
	// OpenAPI is served verbatim at GET /openapi.yaml when set.
	OpenAPI []byte
}

// Server implements gen.StrictServerInterface for all API endpoints.
// Methods are in domain-specific files but all operate on this struct.
type Server struct {
	trackers TrackerLookup
	history  HistoryServicer
	accounts AccountServicer
	captcha  CaptchaVerifier
	rate     domain.Rate
	log      *slog.Logger
	authn    func(http.Handler) http.Handler
	openapi  []byte
}

var _ gen.StrictServerInterface = (*Server)(nil)

// NewServer constructs the Server with all its dependencies.
func NewServer(d Deps) *Server {
	s := &Server{
		trackers: d.Trackers,
		history:  d.History,
		accounts: d.Accounts,
		captcha:  d.Captcha,
		rate:     d.Rate,
		log:      d.Logger,
		authn:    d.Authenticate,
		openapi:  d.OpenAPI,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.authn == nil {
		s.authn = func(next http.Handler) http.Handler { return next }
	}
	return s
}

// Routes mounts every operation of the generated router on a chi router.
// gen.NewStrictHandlerWithOptions adapts Server to the lower-level
// ServerInterface chi expects; its error hooks render the JSON error envelope.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	if s.openapi != nil {
		r.Get("/openapi.yaml", s.serveOpenAPI)
	}
	// The generated route below replaces the POST entry; every other
	// method keeps the plain-text 405 browsers of the login form expect.
	r.HandleFunc("/login", loginMethodNotAllowed)

	api := gen.NewStrictHandlerWithOptions(s, nil, gen.StrictHTTPServerOptions{
		RequestErrorHandlerFunc:  s.requestError,
		ResponseErrorHandlerFunc: s.responseError,
	})
	login := gen.NewStrictHandlerWithOptions(s, nil, gen.StrictHTTPServerOptions{
		RequestErrorHandlerFunc:  s.loginFailure,
		ResponseErrorHandlerFunc: s.loginFailure,
	})

	return gen.HandlerWithOptions(loginRoute{ServerInterface: api, login: login}, gen.ChiServerOptions{
		BaseRouter:       r,
		Middlewares:      []gen.MiddlewareFunc{s.requireBearer},
		ErrorHandlerFunc: s.paramError,
	})
}

// loginRoute serves /login through its own strict handler so that its
// failures keep the flat {"error": "..."} body.
type loginRoute struct {
	gen.ServerInterface
	login gen.ServerInterface
}

func (h loginRoute) Login(w http.ResponseWriter, r *http.Request) {
	h.login.Login(w, r)
}

// requireBearer applies the Authenticate middleware to operations the
// generated wrapper marked with bearerAuth scopes.
func (s *Server) requireBearer(next http.Handler) http.Handler {
	authed := s.authn(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, scoped := r.Context().Value(gen.BearerAuthScopes).([]string); scoped {
			authed.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
