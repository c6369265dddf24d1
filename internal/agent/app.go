// Package agent initializes and runs the device-side process: the local
// persistence store, the caching gateway in front of the web UI, the online
// watcher and the sync reconciler.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/danielmvs/fleetsync/internal/agent/api"
	"github.com/danielmvs/fleetsync/internal/agent/config"
	"github.com/danielmvs/fleetsync/internal/agent/fetch"
	"github.com/danielmvs/fleetsync/internal/agent/gateway"
	"github.com/danielmvs/fleetsync/internal/agent/netwatch"
	"github.com/danielmvs/fleetsync/internal/agent/recorder"
	"github.com/danielmvs/fleetsync/internal/agent/store"
	"github.com/danielmvs/fleetsync/internal/agent/syncer"
	"github.com/danielmvs/fleetsync/internal/common"
	"github.com/danielmvs/fleetsync/internal/logging"
	"github.com/danielmvs/fleetsync/internal/models"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	store      *store.Store
	client     *api.RESTClient
	status     *netwatch.Status
	fetcher    *fetch.Fetcher
	recorder   *recorder.Recorder
	reconciler *syncer.Reconciler
	worker     *gateway.Worker
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	st, err := store.Open(ctx, cfg.DatabaseDSN, logger)
	if err != nil {
		return nil, err
	}

	client := api.NewRESTClient(cfg.ServerEndpointAddr)
	status := netwatch.NewStatus(false, logger)
	fetcher := fetch.NewFetcher(client, st, status, logger)

	worker, err := gateway.NewWorker(cfg.UpstreamAddr, cfg.PrecacheManifest, logger)
	if err != nil {
		return nil, err
	}

	rec := recorder.NewRecorder(st, client, status, netwatch.NewAllocator(), logger)
	reconciler := syncer.NewReconciler(st, client, logger, worker.Hub())

	return &App{
		config:     cfg,
		logger:     logger,
		store:      st,
		client:     client,
		status:     status,
		fetcher:    fetcher,
		recorder:   rec,
		reconciler: reconciler,
		worker:     worker,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) sync(ctx context.Context) {
	if _, err := app.reconciler.Sync(ctx); err != nil {
		app.logger.Error(ctx, "sync failed", "err", err)
	}
}

// handleData serves reference data to local UI clients through the fetch
// wrapper. The X-Data-Source header tells the caller whether the body came
// from the network or from the local snapshot.
func (app *App) handleData(rw http.ResponseWriter, req *http.Request) {
	category := models.Category(mux.Vars(req)["category"])

	body, source := app.fetcher.FetchWithFallback(req.Context(), category)
	rw.Header().Set("Content-Type", "application/json")
	rw.Header().Set("X-Data-Source", string(source))
	_, _ = rw.Write(body)
}

// handleCreateRegistration accepts a new record from the UI. While offline
// the record is queued locally under a temporary negative ID instead of being
// bounced off the unreachable API; the reconciler drains it later.
func (app *App) handleCreateRegistration(rw http.ResponseWriter, req *http.Request) {
	var reg models.Registration
	if err := json.NewDecoder(req.Body).Decode(&reg); err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := app.recorder.CreateRegistration(req.Context(), &reg)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, common.ErrUnknownKind) || errors.Is(err, common.ErrDetailsMismatch) {
			status = http.StatusBadRequest
		}
		http.Error(rw, err.Error(), status)
		return
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(rw).Encode(created); err != nil {
		app.logger.Error(req.Context(), "failed to encode registration", "err", err)
	}
}

// handleSaveImage queues an inspection photo. The body carries the storage
// key and the photo as a data URL.
func (app *App) handleSaveImage(rw http.ResponseWriter, req *http.Request) {
	var body struct {
		Key     string `json:"key"`
		DataURL string `json:"dataUrl"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	if body.Key == "" || body.DataURL == "" {
		http.Error(rw, "key and dataUrl are required", http.StatusBadRequest)
		return
	}

	app.recorder.SaveImage(req.Context(), body.Key, body.DataURL)
	rw.WriteHeader(http.StatusAccepted)
}

func (app *App) router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws", app.worker.Hub().ServeWS)
	r.HandleFunc("/data/registrations", app.handleCreateRegistration).Methods(http.MethodPost)
	r.HandleFunc("/data/images", app.handleSaveImage).Methods(http.MethodPost)
	r.HandleFunc("/data/{category}", app.handleData).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(app.worker)
	return r
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting agent...")

	app.initSignalHandler(cancelFunc)

	app.worker.SetSyncTrigger(func() { app.sync(ctx) })

	// reconnects drain the queue and fire any registered background-sync tags
	app.status.Subscribe(func(online bool) {
		if !online {
			return
		}
		go func() {
			app.sync(ctx)
			app.worker.FlushSyncTags()
		}()
	})

	app.status.Set(ctx, app.client.Ping(ctx) == nil)
	go app.status.Watch(ctx, app.config.OnlineCheckInterval, app.client.Ping)

	app.worker.Install(ctx)
	app.worker.Activate(ctx)

	srv := &http.Server{Addr: app.config.GatewayAddr, Handler: app.router()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	app.logger.Info(ctx, "gateway listening", "addr", app.config.GatewayAddr)

	select {
	case <-ctx.Done():
		app.logger.Info(ctx, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "gateway shutdown error", "err", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, "gateway error", "err", err)
			return err
		}
	}

	return app.store.Close()
}
