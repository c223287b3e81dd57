// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/xmidt-org/arrange"
	"github.com/xmidt-org/arrange/arrangehttp"
	"github.com/xmidt-org/candlelight"
	"github.com/xmidt-org/httpaux"
	"github.com/xmidt-org/httpaux/recovery"
	"github.com/xmidt-org/sallust"
	"github.com/xmidt-org/streamdex/cache"
	"github.com/xmidt-org/streamdex/streamers"
	"github.com/xmidt-org/touchstone/touchhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	indexPath   = "/streamers/index.json"
	metricsPath = "/metrics"
	healthPath  = "/health"
)

var photoPath = fmt.Sprintf("/streamers/{%s}/{%s:.+}", streamers.RecordIDVarKey, streamers.AssetPathVarKey)

// PrimaryServerIn is injected into the primary server's constructor.
type PrimaryServerIn struct {
	fx.In
	Middleware alice.Chain              `name:"servers.primary.middleware"`
	ErrorLog   arrangehttp.ServerOption `name:"servers.errorLog"`
}

type MetricsServerIn struct {
	fx.In
	ErrorLog arrangehttp.ServerOption `name:"servers.errorLog"`
}

type HealthServerIn struct {
	fx.In
	Middleware alice.Chain              `name:"servers.health.middleware"`
	ErrorLog   arrangehttp.ServerOption `name:"servers.errorLog"`
}

type PrimaryMiddlewareIn struct {
	fx.In
	Metrics touchhttp.ServerInstrumenter `name:"servers.primary.metrics"`
	Logger  *zap.Logger
}

type HealthMiddlewareIn struct {
	fx.In
	Metrics touchhttp.ServerInstrumenter `name:"servers.health.metrics"`
}

type PrimaryRoutesIn struct {
	fx.In
	Router  *mux.Router `name:"servers.primary"`
	Tracing candlelight.Tracing
	Index   streamers.Handler `name:"index_handler"`
	Photo   streamers.Handler `name:"photo_handler"`
}

type MetricsRoutesIn struct {
	fx.In
	Router  *mux.Router `name:"servers.metrics"`
	Handler touchhttp.Handler
}

type HealthRoutesIn struct {
	fx.In
	Router *mux.Router `name:"servers.health"`
	Cache  cache.C
}

// provideServers binds the primary, metrics and health servers to the
// application. Each is unmarshaled from servers.<name>; the addresses below
// apply when the configuration leaves them out.
func provideServers() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotated{
				Name:   "servers.primary.middleware",
				Target: providePrimaryMiddleware,
			},
			fx.Annotated{
				Name:   "servers.health.middleware",
				Target: provideHealthMiddleware,
			},
			fx.Annotated{
				Name:   "servers.errorLog",
				Target: provideServerErrorLog,
			},
		),
		arrangehttp.Server{
			Name:          "servers.primary",
			Key:           "servers.primary",
			ServerFactory: arrangehttp.ServerConfig{Address: ":6600"},
			Inject:        arrange.Inject{PrimaryServerIn{}},
		}.Provide(),
		arrangehttp.Server{
			Name:          "servers.metrics",
			Key:           "servers.metrics",
			ServerFactory: arrangehttp.ServerConfig{Address: ":6601"},
			Inject:        arrange.Inject{MetricsServerIn{}},
		}.Provide(),
		arrangehttp.Server{
			Name:          "servers.health",
			Key:           "servers.health",
			ServerFactory: arrangehttp.ServerConfig{Address: ":6602"},
			Inject:        arrange.Inject{HealthServerIn{}},
		}.Provide(),
	)
}

func provideServerErrorLog(logger *zap.Logger) arrangehttp.ServerOption {
	return arrangehttp.ErrorLog(zap.NewStdLog(logger.Named("http")))
}

// providePrimaryMiddleware wraps the primary router. Every response,
// preflights included, is CORS-permissive.
func providePrimaryMiddleware(in PrimaryMiddlewareIn) alice.Chain {
	return alice.New(
		in.Metrics.Then,
		recovery.Middleware(recovery.WithStatusCode(http.StatusInternalServerError)),
		requestLogger(in.Logger),
		handlers.CORS(
			handlers.AllowedOrigins([]string{"*"}),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type", "If-None-Match", "If-Modified-Since"}),
			handlers.OptionStatusCode(http.StatusNoContent),
		),
	)
}

func provideHealthMiddleware(in HealthMiddlewareIn) alice.Chain {
	return alice.New(in.Metrics.Then)
}

func BuildPrimaryRoutes(in PrimaryRoutesIn) {
	primaryRoutes(in.Router, in.Tracing, in.Index, in.Photo)
}

func BuildMetricsRoutes(in MetricsRoutesIn) {
	in.Router.Handle(metricsPath, in.Handler).Methods(http.MethodGet)
}

func BuildHealthRoutes(in HealthRoutesIn) {
	in.Router.Handle(healthPath, healthHandler(in.Cache)).Methods(http.MethodGet)
}

func primaryRoutes(router *mux.Router, tracing candlelight.Tracing, index, photo http.Handler) {
	options := []otelmux.Option{
		otelmux.WithTracerProvider(tracing.TracerProvider()),
		otelmux.WithPropagators(tracing.Propagator()),
	}
	router.Use(otelmux.Middleware("server_primary", options...),
		candlelight.EchoFirstTraceNodeInfo(tracing, false))

	router.Handle(indexPath, index).Methods(http.MethodGet)
	router.Handle(photoPath, photo).Methods(http.MethodGet)
}

// requestLogger makes a request scoped logger available through sallust.Get.
func requestLogger(logger *zap.Logger) alice.Constructor {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger.With(
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remoteAddr", r.RemoteAddr),
			)
			next.ServeHTTP(w, r.WithContext(sallust.With(r.Context(), l)))
		})
	}
}

// healthHandler answers 200 while the cache is reachable.
func healthHandler(c cache.C) http.Handler {
	ok := httpaux.ConstantHandler{
		StatusCode: http.StatusOK,
	}
	unavailable := httpaux.ConstantHandler{
		StatusCode: http.StatusServiceUnavailable,
	}
	pinger, _ := c.(cache.Pinger)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			if err := pinger.Ping(ctx); err != nil {
				sallust.Get(r.Context()).Warn("cache ping failed", zap.Error(err))
				unavailable.ServeHTTP(w, r)
				return
			}
		}
		ok.ServeHTTP(w, r)
	})
}
