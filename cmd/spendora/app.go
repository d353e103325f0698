package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-spendora-client/apiclient"
	"github.com/jrsteele09/go-spendora-client/auth"
	"github.com/jrsteele09/go-spendora-client/credentials"
	"github.com/jrsteele09/go-spendora-client/events"
	"github.com/jrsteele09/go-spendora-client/internal/config"
	"github.com/jrsteele09/go-spendora-client/internal/ui"
	"github.com/jrsteele09/go-spendora-client/metrics"
	"github.com/jrsteele09/go-spendora-client/verification"
)

const (
	credentialFile = "credentials.json"
	markerFile     = "password_reset.json"
)

type appOptions struct {
	verbose bool
	out     io.Writer
}

// app is one wired session: stores, client, bus and service.
type app struct {
	cfg      config.Config
	service  *auth.Service
	client   *apiclient.Client
	registry *prometheus.Registry
	closers  []func() error
}

func newApp(ctx context.Context, c config.Config, opts appOptions) (*app, error) {
	a := &app{cfg: c, registry: prometheus.NewRegistry()}

	store, markers, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}

	recorder := metrics.NewCollector(a.registry)
	bus := events.NewBus()

	clientOpts := []apiclient.Option{
		apiclient.WithTimeout(c.GetRequestTimeout()),
		apiclient.WithRefreshTimeout(c.GetRefreshTimeout()),
		apiclient.WithRefreshPath(c.GetRefreshPath()),
		apiclient.WithObserver(bus),
		apiclient.WithRecorder(recorder),
	}
	if opts.verbose {
		clientOpts = append(clientOpts, apiclient.WithRequestHook(printRequest(opts.out)))
	}
	a.client = apiclient.New(apiclient.NewDefaults(c.GetAPIBaseURL()), store, clientOpts...)

	a.service, err = auth.NewService(a.client, store, bus,
		auth.WithVerificationConfig(c),
		auth.WithMarkerStore(verification.NewMarkerStore(markers, c.GetPasswordResetWindow())),
		auth.WithResendThrottle(verification.NewResendThrottle(c.GetOTPResendInterval(), nil)),
		auth.WithRecorder(recorder),
	)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		a.service.Close()
		return nil
	})
	return a, nil
}

// openStores picks the credential backend from config. The password-reset
// marker lives next to the credentials but never in the same keyspace.
func (a *app) openStores(ctx context.Context) (credentials.Store, credentials.Store, error) {
	c := a.cfg
	switch c.GetCredentialStore() {
	case config.StoreMemory:
		return credentials.NewMemoryStore(), credentials.NewMemoryStore(), nil

	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: c.GetRedisAddr()})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", c.GetRedisAddr(), err)
		}
		a.closers = append(a.closers, rdb.Close)
		log.Debug().Str("addr", c.GetRedisAddr()).Msg("using redis credential store")
		return credentials.NewRedisStore(rdb, c.GetRedisPrefix(), c.GetRedisTTL()),
			credentials.NewRedisStore(rdb, c.GetRedisPrefix()+":reset", c.GetPasswordResetWindow()),
			nil

	default:
		folder := c.GetDataFolder()
		fileOpts := []credentials.FileStoreOption{credentials.WithPassphrase(c.GetCredentialPassphrase())}
		store := credentials.NewFileStore(filepath.Join(folder, credentialFile), fileOpts...)
		log.Debug().Str("path", store.Path()).Msg("using file credential store")
		return store, credentials.NewFileStore(filepath.Join(folder, markerFile), fileOpts...), nil
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

func printRequest(out io.Writer) apiclient.RequestHook {
	return func(r *http.Request) {
		mode := ui.Dim.Render("anonymous")
		if r.Header.Get("Authorization") != "" {
			mode = ui.Dim.Render("bearer")
		}
		fmt.Fprintf(out, "[%s] %s %s\n", ui.Method(r.Method), r.URL.String(), mode)
	}
}

// printMetrics writes every non-zero counter sample.
func (a *app) printMetrics(out io.Writer) {
	families, err := a.registry.Gather()
	if err != nil {
		log.Err(err).Msg("gathering metrics")
		return
	}

	fmt.Fprintln(out, ui.Title.Render("Metrics"))
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			if value == 0 {
				continue
			}

			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			sort.Strings(labels)
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			fmt.Fprintf(out, "  %s %g\n", ui.Dim.Render(name), value)
		}
	}
}
