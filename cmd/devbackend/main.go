// Command devbackend serves the in-memory Spendora API on a local port so the
// CLI can be tried without the real backend. Issued OTP codes are logged.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-spendora-client/internal/config"
	"github.com/jrsteele09/go-spendora-client/internal/fakebackend"
	"github.com/jrsteele09/go-spendora-client/internal/logging"
	"github.com/jrsteele09/go-spendora-client/internal/ui"
)

var errPanic = errors.New("panic recovered")

type options struct {
	addr     string
	prefix   string
	seed     string
	loginOTP bool
	rotate   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.addr, "addr", ":8000", "Listen address")
	flag.StringVar(&opts.prefix, "prefix", "/api", "Path prefix the API is mounted under")
	flag.StringVar(&opts.seed, "seed", "", "Create an account up front, as email:password")
	flag.BoolVar(&opts.loginOTP, "login-otp", false, "Require an emailed code on login")
	flag.BoolVar(&opts.rotate, "rotate", false, "Issue a new refresh token on every refresh")
	flag.Parse()

	c := config.New()
	logging.Setup(c.GetEnv(), c.GetLogLevel())

	for {
		err := run(opts)
		if err == nil {
			break
		}
		if !errors.Is(err, errPanic) {
			log.Fatal().Err(err).Msg("dev backend failed")
		}
		log.Err(err).Msg("restarting dev backend")
		time.Sleep(1 * time.Second)
	}
	log.Info().Msg("dev backend stopped")
}

func run(opts options) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errPanic
		}
	}()

	backendOpts := []fakebackend.Option{}
	if opts.loginOTP {
		backendOpts = append(backendOpts, fakebackend.WithLoginOTP())
	}
	if opts.rotate {
		backendOpts = append(backendOpts, fakebackend.WithRefreshRotation())
	}
	backend := fakebackend.New(backendOpts...)
	if err := seed(backend, opts.seed); err != nil {
		return err
	}

	server := &http.Server{Addr: opts.addr, Handler: router(backend, opts.prefix)}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(server) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	return shutdown(server)
}

func router(backend *fakebackend.Backend, prefix string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logRoutes)
	r.Mount(prefix, backend.Handler())
	return r
}

func logRoutes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		fmt.Printf("[%s] %s %s %s\n", ui.Method(r.Method), ui.Status(ww.Status()), r.URL.Path, ui.Dim.Render(time.Since(start).String()))
	})
}

func seed(backend *fakebackend.Backend, spec string) error {
	if spec == "" {
		return nil
	}
	email, password, ok := strings.Cut(spec, ":")
	if !ok || email == "" || password == "" {
		return fmt.Errorf("seed account must be email:password, got %q", spec)
	}
	backend.AddUser(email, password, "Dev", "User")
	log.Info().Str("email", email).Msg("seeded account")
	return nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("dev backend listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
