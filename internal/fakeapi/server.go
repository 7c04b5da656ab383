// Package fakeapi is an in-memory PawConnect backend for local development
// and for the client's integration tests. It serves the same REST surface
// as the real backend with bcrypt-hashed users, HS256 bearer tokens and
// the {success, message, data} envelope.
//
// State lives in process memory only; a restart starts from the seeded
// accounts.
package fakeapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/pawconnect/internal/config"
	"github.com/tbourn/pawconnect/internal/domain"
)

// UploadShape selects how /api/files/upload reports the stored file.
type UploadShape string

const (
	UploadBare     UploadShape = "bare"     // "https://host/api/files/x.png"
	UploadEnvelope UploadShape = "envelope" // {"success":true,"data":"..."}
	UploadData     UploadShape = "data"     // {"data":"..."}
	UploadURL      UploadShape = "url"      // {"url":"..."}
)

// Seeded accounts.
const (
	AdminEmail    = "admin@pawconnect.local"
	AdminPassword = "admin123"
	UserEmail     = "user@pawconnect.local"
	UserPassword  = "user1234"
)

// Options configures a Server.
type Options struct {
	JWTSecret      string
	TokenTTL       time.Duration
	AllowedOrigins []string
	ServiceName    string // otelgin span service name

	RateRPS   float64 // per user/IP; 0 disables
	RateBurst int

	BcryptCost     int   // 0 means bcrypt.DefaultCost
	MaxUploadBytes int64 // 0 means 10 MiB

	BareLists   bool // list endpoints answer without the envelope
	UploadShape UploadShape

	Seed bool // create the admin and user accounts
	Now  func() time.Time
}

// OptionsFromConfig derives Options from the loaded configuration.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		JWTSecret:      cfg.FakeAPI.JWTSecret,
		TokenTTL:       cfg.FakeAPI.TokenTTL,
		AllowedOrigins: cfg.FakeAPI.AllowedOrigins,
		ServiceName:    cfg.OTEL.ServiceName + "-fakeapi",
		MaxUploadBytes: cfg.UploadMaxBytes,
		BareLists:      true,
		UploadShape:    UploadBare,
		Seed:           true,
	}
}

// Server is the fake backend. Create it with New.
type Server struct {
	opts   Options
	st     *state
	tokens *TokenManager
	engine *gin.Engine
}

// New builds the engine and, when opts.Seed is set, the seeded accounts.
func New(opts Options) (*Server, error) {
	if opts.JWTSecret == "" {
		return nil, errors.New("fakeapi: JWT secret is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.RateBurst < 1 {
		opts.RateBurst = 1
	}
	if opts.UploadShape == "" {
		opts.UploadShape = UploadBare
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "pawconnect-fakeapi"
	}

	s := &Server{
		opts:   opts,
		st:     newState(opts.Now),
		tokens: NewTokenManager(opts.JWTSecret, opts.TokenTTL),
	}
	s.tokens.now = opts.Now

	if opts.Seed {
		if _, err := s.AddUser(domain.SignupForm{Name: "Admin", Username: "admin", Email: AdminEmail, Password: AdminPassword}, true); err != nil {
			return nil, fmt.Errorf("seed admin: %w", err)
		}
		if _, err := s.AddUser(domain.SignupForm{Name: "Demo User", Username: "demo", Email: UserEmail, Password: UserPassword}, false); err != nil {
			return nil, fmt.Errorf("seed user: %w", err)
		}
	}

	s.engine = gin.New()
	s.routes(s.engine)
	return s, nil
}

// Handler returns the HTTP handler of the backend.
func (s *Server) Handler() http.Handler { return s.engine }

// AddUser creates a verified account, an administrator when admin is set.
func (s *Server) AddUser(f domain.SignupForm, admin bool) (domain.User, error) {
	hash, err := hashPassword(f.Password, s.opts.BcryptCost)
	if err != nil {
		return domain.User{}, err
	}
	a, err := s.st.addUser(f, hash, admin, true)
	if err != nil {
		return domain.User{}, err
	}
	return a.User, nil
}

// VerificationToken returns the pending e-mail verification token of a
// registered account. It stands in for the mail a real backend would send.
func (s *Server) VerificationToken(email string) (string, bool) {
	return s.st.verificationToken(email)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("fake backend listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("fake backend stopped")
	return nil
}
