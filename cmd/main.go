package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"reflect"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/spatial/featureflag"
	"github.com/aukilabs/spatial/geometry"
	spatialhttp "github.com/aukilabs/spatial/http"
	"github.com/aukilabs/spatial/models"
	"github.com/aukilabs/spatial/smoketest"
	"github.com/aukilabs/spatial/spatial"
	swebsocket "github.com/aukilabs/spatial/websocket"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The server version number. Set at build.
	version = "v0.1.0"

	// Identifies this server process in logs and events.
	instanceID = uuid.NewString()

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "spatial_info",
		Help:        "Spatial server information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"SPATIAL_ADDR"                  help:"Listening address for client connections."`
	AdminAddr          string        `cli:""        env:"SPATIAL_ADMIN_ADDR"            help:"Admin listening address."`
	PublicEndpoint     string        `cli:""        env:"SPATIAL_PUBLIC_ENDPOINT"       help:"The public endpoint where this server is reachable."`
	LogLevel           string        `cli:""        env:"SPATIAL_LOG_LEVEL"             help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"SPATIAL_LOG_INDENT"            help:"Indent logs."`
	ClientIdleTimeout  time.Duration `cli:",hidden" env:"SPATIAL_CLIENT_IDLE_TIMEOUT"   help:"Time until an idle client will be disconnected"`
	LogSummaryInterval time.Duration `cli:",hidden" env:"SPATIAL_LOG_SUMMARY_INTERVAL"  help:"The duration between each log summary by connection."`
	SmokeTestTimeout   time.Duration `cli:",hidden" env:"SPATIAL_SMOKE_TEST_TIMEOUT"    help:"The maximum duration of a smoke test."`
	Space              spaceConfig   `cli:",hidden" env:"-"                             help:"Default space configuration."`
	Spaces             []string      `cli:""        env:"SPATIAL_SPACES"                help:"Comma separated names of the spaces created at startup."`
	Events             eventsConfig  `cli:",hidden" env:"-"                             help:"Event pusher configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"SPATIAL_FEATURE_FLAGS"         help:"Comma separated feature flags"`
	Version            bool          `cli:""        env:"-"                             help:"Show version."`
	Help               bool          `cli:""        env:"-"                             help:"Show help."`
}

type spaceConfig struct {
	MinX             float64 `cli:",hidden" env:"SPATIAL_SPACE_MIN_X"              help:"The default lower x bound of a space."`
	MaxX             float64 `cli:",hidden" env:"SPATIAL_SPACE_MAX_X"              help:"The default upper x bound of a space."`
	MinY             float64 `cli:",hidden" env:"SPATIAL_SPACE_MIN_Y"              help:"The default lower y bound of a space."`
	MaxY             float64 `cli:",hidden" env:"SPATIAL_SPACE_MAX_Y"              help:"The default upper y bound of a space."`
	MinZ             float64 `cli:",hidden" env:"SPATIAL_SPACE_MIN_Z"              help:"The default lower z bound of a space."`
	MaxZ             float64 `cli:",hidden" env:"SPATIAL_SPACE_MAX_Z"              help:"The default upper z bound of a space."`
	MinimumChildSize float64 `cli:",hidden" env:"SPATIAL_SPACE_MINIMUM_CHILD_SIZE" help:"The default smallest octant size on every axis."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"SPATIAL_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"SPATIAL_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"SPATIAL_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"SPATIAL_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:               ":4000",
		AdminAddr:          ":18190",
		PublicEndpoint:     "http://localhost:4000",
		LogLevel:           logs.InfoLevel.String(),
		ClientIdleTimeout:  time.Minute * 5,
		LogSummaryInterval: time.Minute,
		SmokeTestTimeout:   time.Second * 5,
		Space: spaceConfig{
			MinX: -1000,
			MaxX: 1000,
			MinY: -1000,
			MaxY: 1000,
			MinZ: -1000,
			MaxZ: 1000,
		},
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts the spatial index server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	transport := metrics.HTTPTransport(http.DefaultTransport)

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     transport,
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "spatial",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	featureFlags := featureflag.New(conf.FeatureFlags)
	defaultSpaceConfig := spaceConfigFrom(conf.Space, featureFlags)

	var spaces models.SpaceStore
	for _, name := range conf.Spaces {
		space, err := models.NewSpace(name, defaultSpaceConfig)
		if err != nil {
			logs.Fatal(errors.New("creating startup space failed").
				WithTag("space", name).
				Wrap(err))
		}
		if err := spaces.Add(ctx, space); err != nil {
			logs.Fatal(err)
		}
	}

	var service http.ServeMux

	spacesHandler := spatialhttp.SpacesHandler{
		Spaces:        &spaces,
		DefaultConfig: defaultSpaceConfig,
		FeatureFlags:  featureFlags,
		Notifier:      swebsocket.SpaceNotifier{FeatureFlags: featureFlags},
	}
	spacesHandler.Register(&service)

	service.HandleFunc("/health", spatialhttp.HandleHealthCheck)
	service.Handle("/version", spatialhttp.HandleWithCORS(http.HandlerFunc(spatialhttp.HandleVersion(version))))

	service.Handle("/smoke-test", spatialhttp.HandleWithCORS(smoketest.HandleSmokeTest(smoketest.Options{
		Timeout: conf.SmokeTestTimeout,
		SendResult: func(ctx context.Context, res smoketest.Results) error {
			logs.WithTag("passed", res.Passed).
				WithTag("duration", res.Duration).
				WithTag("checks", res.Checks).
				Info("smoke test completed")
			return nil
		},
	})))

	var ready atomic.Bool
	readinessCheck := ready.Load
	service.Handle("/ready", spatialhttp.HandleWithCORS(http.HandlerFunc(spatialhttp.HandleReadyCheck(readinessCheck))))

	featureFlags.IfNotSet(featureflag.FlagDisableWebsocket, func() {
		service.Handle("/realtime", spatialhttp.HandleWithCORS(websocket.Server{
			Handler: func(conn *websocket.Conn) {
				defer conn.Close()

				var rh swebsocket.Handler = &swebsocket.RealtimeHandler{
					ClientIdleTimeout: conf.ClientIdleTimeout,
					Spaces:            &spaces,
					FeatureFlags:      featureFlags,
				}
				h := swebsocket.HandlerWithLogs(rh, conf.LogSummaryInterval)
				h = swebsocket.HandlerWithMetrics(h, conf.PublicEndpoint)
				defer h.Close()

				swebsocket.Handle(ctx, conn, h)
			},
		}))
	})

	service.Handle("/ping", websocket.Server{
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			io.Copy(ws, ws)
		},
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", spatialhttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", spatialhttp.HandleReadyCheck(readinessCheck))

	logs.WithTag("version", version).
		WithTag("instance_id", instanceID).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("default_space", defaultSpaceConfig.String()).
		WithTag("feature_flags", featureFlags.Strings()).
		WithTag("spaces", spaces.Names()).
		Info("starting spatial server")

	ready.Store(true)

	spatialhttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			spatialhttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

func spaceConfigFrom(conf spaceConfig, flags featureflag.FeatureFlag) spatial.OctTreeConfig[float64] {
	return spatial.OctTreeConfig[float64]{
		Bounds:             geometry.VolumeOf(conf.MinX, conf.MaxX, conf.MinY, conf.MaxY, conf.MinZ, conf.MaxZ),
		MinimumChildWidth:  conf.MinimumChildSize,
		MinimumChildHeight: conf.MinimumChildSize,
		MinimumChildDepth:  conf.MinimumChildSize,
		TrimOnRemove:       flags.IsSet(featureflag.FlagTrimOnRemove),
	}.WithDefaults()
}

func validateConfig(conf config) error {
	if _, err := url.ParseRequestURI(conf.PublicEndpoint); err != nil {
		return errors.New("invalid public endpoint").Wrap(err)
	}

	if conf.ClientIdleTimeout <= 0 {
		return errors.New("client idle timeout must be positive").
			WithTag("client_idle_timeout", conf.ClientIdleTimeout)
	}

	if conf.LogSummaryInterval <= 0 {
		return errors.New("log summary interval must be positive").
			WithTag("log_summary_interval", conf.LogSummaryInterval)
	}

	if conf.Space.MinimumChildSize < 0 {
		return errors.New("minimum child size must not be negative").
			WithTag("minimum_child_size", conf.Space.MinimumChildSize)
	}

	if err := spaceConfigFrom(conf.Space, nil).Validate(); err != nil {
		return errors.New("invalid default space configuration").Wrap(err)
	}

	for _, name := range conf.Spaces {
		if name == "" {
			return errors.New("startup space name is empty")
		}
	}

	return nil
}
