package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"GiftFM/catalog"
	"GiftFM/config"
	"GiftFM/core/live"
	"GiftFM/core/overlay"
	"GiftFM/core/pipeline"
	"GiftFM/logger"
	"GiftFM/store"

	"github.com/go-chi/httprate"
	"github.com/gorilla/mux"
)

// Start initializes all components and runs the HTTP server until a
// termination signal arrives. Only a failure to bind the listener (or to
// open local state) is fatal.
func Start() {
	cfg := config.Load()

	logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		OutputPath: cfg.LogPath,
		MaxSize:    50,
		MaxBackups: 3,
		MaxAge:     14,
	})

	// 本地状态：设置存储 + 音频库目录/索引
	settings, err := store.Open(filepath.Join(cfg.DataDir, "settings"))
	if err != nil {
		logger.Fatal("failed to open settings store", logger.ErrorField(err))
	}
	defer settings.Close()

	cat, err := catalog.Open(filepath.Join(cfg.DataDir, "catalog.db"), cfg.LibraryDir)
	if err != nil {
		logger.Fatal("failed to open audio catalog", logger.ErrorField(err))
	}
	defer cat.Close()

	// 库目录监听：文件被外部删除时同步清理目录索引和礼物映射
	watcher, err := catalog.NewWatcher(cat, func(path string) {
		if err := settings.PruneAudioPath(path); err != nil {
			logger.Warn("failed to prune mappings", logger.String("path", path), logger.ErrorField(err))
		}
	})
	if err != nil {
		logger.Warn("library watcher unavailable", logger.ErrorField(err))
	} else {
		defer watcher.Stop()
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// 播放侧：Hub + 队列跟踪 + 服务门面
	hub := overlay.NewHub()
	go hub.Run()
	defer hub.Stop()

	var svc *overlay.Service
	tracker := pipeline.NewTracker(cfg.WatchdogTimeout, func() {
		if svc != nil {
			svc.ClearQueue()
		}
	})
	svc = overlay.NewService(hub, tracker, cfg.BaseURL())

	// 事件管线：去重 -> 选择 -> 重复调度 -> 广播
	dedup, err := pipeline.NewDedup(rootCtx, cfg.DedupWindow)
	if err != nil {
		logger.Fatal("failed to init deduplicator", logger.ErrorField(err))
	}
	defer dedup.Close()

	selector := pipeline.NewSelector(settings, cat)
	scheduler := pipeline.NewScheduler(cfg.RepeatCadence, cfg.RepeatCap, selector.Resolve)
	pipe := pipeline.New(dedup, scheduler, svc)

	bus := live.NewBus()
	pipe.Attach(bus)
	defer pipe.Detach()

	// 上游事件源；连接失败只记录状态，由用户重新发起
	feed := live.NewRelayFeed(cfg.RelayURL, cfg.RoomID, bus)
	if cfg.RelayURL != "" {
		if err := feed.Connect(rootCtx); err != nil {
			logger.Warn("initial feed connect failed", logger.ErrorField(err))
		}
	}
	defer feed.Disconnect()

	overlayHandler := NewOverlayHandler(hub)
	audioHandler := NewAudioHandler(svc)
	libraryHandler := NewLibraryHandler(cfg.LibraryDir)
	apiHandler := NewAPIHandler(settings, cat, svc, feed, cfg)

	router := mux.NewRouter()

	// 全局限流：同一来源地址滑动窗口限请求数
	router.Use(httprate.LimitByIP(cfg.RateLimitRequests, cfg.RateLimitWindow))

	// CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 播放端推送通道与拉取端点
	router.HandleFunc("/overlay/ws", overlayHandler.ServeWS).Methods(http.MethodGet)
	router.HandleFunc("/audio/{token}", audioHandler.ServeHTTP).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/library/{filename}", libraryHandler.ServeHTTP).Methods(http.MethodGet, http.MethodHead)

	// 本地控制面 API
	router.HandleFunc("/api/status", apiHandler.StatusHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/queue", apiHandler.QueueProgressHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/queue/clear", apiHandler.ClearQueueHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/volume", apiHandler.GetVolumeHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/volume", apiHandler.SetVolumeHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/mappings", apiHandler.ListMappingsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/mappings", apiHandler.SetMappingHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/mappings/{giftId}", apiHandler.GetMappingHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/mappings/{giftId}", apiHandler.DeleteMappingHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/audios", apiHandler.ListAudiosHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/audios", apiHandler.ImportAudioHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/audios/{id}", apiHandler.UpdateAudioHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/audios/{id}", apiHandler.DeleteAudioHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/feed/connect", apiHandler.ConnectFeedHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/feed/disconnect", apiHandler.DisconnectFeedHandler).Methods(http.MethodPost)

	// 播放页与诊断页
	router.HandleFunc("/debug", DebugPageHandler).Methods(http.MethodGet)
	router.HandleFunc("/", OverlayPageHandler).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 音频流式响应可能较长，不限写超时
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting",
			logger.String("addr", cfg.Addr()),
			logger.String("overlayUrl", cfg.BaseURL()+"/"))

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("server stopped")
}
