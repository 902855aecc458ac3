package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/pkordes/mileage-tracker/internal/captcha"
	"github.com/pkordes/mileage-tracker/internal/domain"
	"github.com/pkordes/mileage-tracker/internal/handler/gen"
)

// Register handles POST /auth/register.
func (s *Server) Register(ctx context.Context, req gen.RegisterRequestObject) (gen.RegisterResponseObject, error) {
	u, err := s.accounts.Register(ctx, req.Body.Email, req.Body.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrConflict):
			return gen.Register409JSONResponse(conflictBody(err)), nil
		case errors.Is(err, domain.ErrValidation):
			return gen.Register422JSONResponse(validationBody(err)), nil
		}
		return nil, err
	}
	return gen.Register201JSONResponse{Id: u.ID, Email: u.Email}, nil
}

// IssueToken handles POST /auth/token. Signing in notifies the user's trip
// tracker, which reloads its history.
func (s *Server) IssueToken(ctx context.Context, req gen.IssueTokenRequestObject) (gen.IssueTokenResponseObject, error) {
	token, expires, err := s.accounts.SignIn(ctx, req.Body.Email, req.Body.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return gen.IssueToken401JSONResponse(invalidCredentialsBody()), nil
		}
		return nil, err
	}
	return gen.IssueToken200JSONResponse{Token: token, ExpiresAt: expires}, nil
}

// Logout handles POST /auth/logout. Every token issued to the caller stops
// working.
func (s *Server) Logout(ctx context.Context, _ gen.LogoutRequestObject) (gen.LogoutResponseObject, error) {
	userID, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}
	s.accounts.SignOut(ctx, userID)
	return gen.Logout204Response{}, nil
}

const (
	msgLoginOK            = "Login successful (reCAPTCHA verified)"
	msgLoginRejected      = "Invalid reCAPTCHA"
	msgLoginNotConfigured = "Internal Server Error - reCAPTCHA secret key not configured"
	msgLoginFailed        = "Internal Server Error - error during login attempt"
)

// Login handles POST /login: it verifies a reCAPTCHA token and nothing more.
// The bodies use a flat {"error": "..."} shape that browser clients of the
// login form expect.
func (s *Server) Login(ctx context.Context, req gen.LoginRequestObject) (gen.LoginResponseObject, error) {
	res, err := s.captcha.Verify(ctx, req.Body.RecaptchaValue)
	switch {
	case errors.Is(err, captcha.ErrNotConfigured):
		s.log.ErrorContext(ctx, "RECAPTCHA_SECRET_KEY environment variable not set")
		return gen.Login500JSONResponse{Error: strPtr(msgLoginNotConfigured)}, nil
	case err != nil:
		return nil, err
	case !res.Success:
		s.log.InfoContext(ctx, "reCAPTCHA verification failed", "error_codes", res.ErrorCodes)
		return gen.Login401JSONResponse{Error: strPtr(msgLoginRejected)}, nil
	}
	s.log.InfoContext(ctx, "reCAPTCHA verification successful")
	return gen.Login200JSONResponse{Message: strPtr(msgLoginOK)}, nil
}

// loginFailure answers /login requests whose body does not decode or whose
// verification errored.
func (s *Server) loginFailure(w http.ResponseWriter, r *http.Request, err error) {
	s.log.ErrorContext(r.Context(), "error during login attempt", "error", err)
	writeJSON(w, http.StatusInternalServerError, gen.LoginResult{Error: strPtr(msgLoginFailed)})
}

func loginMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusMethodNotAllowed)
	_, _ = w.Write([]byte("Method Not Allowed"))
}

func strPtr(s string) *string { return &s }
