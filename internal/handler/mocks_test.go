package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/mileage-tracker/internal/auth"
	"github.com/pkordes/mileage-tracker/internal/captcha"
	"github.com/pkordes/mileage-tracker/internal/domain"
	"github.com/pkordes/mileage-tracker/internal/handler"
	"github.com/pkordes/mileage-tracker/internal/handler/gen"
)

// mockTracker is a test double for handler.Tracker.
// Set only the method fields your test needs.
type mockTracker struct {
	startTrip      func(ctx context.Context) (domain.TripSession, error)
	endTrip        func(ctx context.Context) (domain.Trip, error)
	refreshHistory func(ctx context.Context) error
	history        func() []domain.Trip
	status         func() domain.TrackerStatus
}

func (m *mockTracker) StartTrip(ctx context.Context) (domain.TripSession, error) {
	return m.startTrip(ctx)
}
func (m *mockTracker) EndTrip(ctx context.Context) (domain.Trip, error) {
	return m.endTrip(ctx)
}
func (m *mockTracker) RefreshHistory(ctx context.Context) error {
	return m.refreshHistory(ctx)
}
func (m *mockTracker) History() []domain.Trip       { return m.history() }
func (m *mockTracker) Status() domain.TrackerStatus { return m.status() }

var _ handler.Tracker = (*mockTracker)(nil)

// mockHistory is a test double for handler.HistoryServicer.
type mockHistory struct {
	get    func(ctx context.Context, userID string, id uuid.UUID) (domain.Trip, error)
	export func(ctx context.Context, userID string, f domain.ExportFilter) (domain.Export, error)
}

func (m *mockHistory) Get(ctx context.Context, userID string, id uuid.UUID) (domain.Trip, error) {
	return m.get(ctx, userID, id)
}
func (m *mockHistory) Export(ctx context.Context, userID string, f domain.ExportFilter) (domain.Export, error) {
	return m.export(ctx, userID, f)
}

var _ handler.HistoryServicer = (*mockHistory)(nil)

// mockAccounts is a test double for handler.AccountServicer.
type mockAccounts struct {
	register func(ctx context.Context, email, password string) (domain.User, error)
	signIn   func(ctx context.Context, email, password string) (string, time.Time, error)
	signOut  func(ctx context.Context, userID string)
}

func (m *mockAccounts) Register(ctx context.Context, email, password string) (domain.User, error) {
	return m.register(ctx, email, password)
}
func (m *mockAccounts) SignIn(ctx context.Context, email, password string) (string, time.Time, error) {
	return m.signIn(ctx, email, password)
}
func (m *mockAccounts) SignOut(ctx context.Context, userID string) { m.signOut(ctx, userID) }

var _ handler.AccountServicer = (*mockAccounts)(nil)

// mockCaptcha is a test double for handler.CaptchaVerifier.
type mockCaptcha struct {
	verify func(ctx context.Context, token string) (captcha.Result, error)
}

func (m *mockCaptcha) Verify(ctx context.Context, token string) (captcha.Result, error) {
	return m.verify(ctx, token)
}

// ---- helpers ---------------------------------------------------------------

const testUser = "user-1"

// asTestUser stands in for the bearer middleware: every request is made by testUser.
func asTestUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), testUser)))
	})
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// newHTTPHandler wires a Server with the given deps into the generated chi
// router, the way main.go does in production. Unset deps stay nil.
func newHTTPHandler(d handler.Deps) http.Handler {
	if d.Authenticate == nil {
		d.Authenticate = asTestUser
	}
	if d.Rate == (domain.Rate{}) {
		d.Rate = domain.Rate{PerMile: 0.45, CurrencySymbol: "£"}
	}
	d.Logger = quietLogger
	return handler.NewServer(d).Routes()
}

// withTracker returns deps whose tracker lookup always yields tr and records
// the user it was asked for.
func withTracker(tr handler.Tracker, gotUser *string) handler.Deps {
	return handler.Deps{
		Trackers: func(_ context.Context, userID string) handler.Tracker {
			if gotUser != nil {
				*gotUser = userID
			}
			return tr
		},
	}
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func decodeError(t *testing.T, body io.Reader) gen.ErrorResponse {
	t.Helper()
	var resp gen.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func strPtr(s string) *string { return &s }

func tripFixture() domain.Trip {
	start := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	return domain.Trip{
		ID:                  uuid.New(),
		UserID:              testUser,
		StartTime:           start,
		EndTime:             start.Add(20 * time.Minute),
		StartCoordinates:    domain.Coordinates{Lat: 51.5007, Lng: -0.1246},
		EndCoordinates:      domain.Coordinates{Lat: 51.5033, Lng: -0.1195},
		StartAddress:        strPtr("Westminster, London"),
		EndAddress:          strPtr("Whitehall, London"),
		DistanceMiles:       0.28,
		ReimbursementAmount: 0.13,
		CreatedAt:           start.Add(21 * time.Minute),
	}
}
