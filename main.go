package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"LPChat/global/config"
	"LPChat/logger"
	mid "LPChat/middleware/security"
	"LPChat/module/chat/model"
	chatapi "LPChat/module/chat/service"
	"LPChat/service/chat"
	"LPChat/service/chat/handlers"
	"LPChat/service/mgo"
	"LPChat/service/natsx"
	"LPChat/service/storage"
	rds "LPChat/service/storage/redis"
	"LPChat/tools/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rds.InitRedis(rds.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}); err != nil {
		logger.Errorf("init redis: %v", err)
		os.Exit(1)
	}
	defer func() { _ = rds.Close() }()

	if err := mgo.Init(ctx, &mgo.Config{URI: cfg.MongoURI, Database: cfg.MongoDatabase, MaxPoolSize: cfg.MongoPoolSize}); err != nil {
		logger.Errorf("init mongo: %v", err)
		os.Exit(1)
	}
	defer func() { _ = mgo.Close(context.Background()) }()

	fanout, err := natsx.NewFanout(natsx.Config{URL: cfg.NatsURL, Name: "lpchat-" + cfg.NodeID})
	if err != nil {
		logger.Errorf("init nats: %v", err)
		os.Exit(1)
	}
	defer fanout.Close()

	store := model.NewStore(mgo.GetDB())
	pres := storage.NewOnlineManager(cfg.NodeID, cfg.PresenceTTL)
	jwtOpts := security.DefaultOptions(config.GetJwtSecret())

	connMgr := chat.NewConnManagerWithConf(chat.ManagerConf{UnauthTTL: cfg.UnauthTTL, IdleTTL: cfg.IdleTTL}, cfg.NodeID)
	defer connMgr.Stop()

	server := chat.NewServer(cfg.NodeID, store, fanout, pres, jwtOpts, connMgr)
	handlers.RegisterAll(server)

	// every node receives room frames, this one included; local delivery
	// rides the same path as remote delivery
	if err := fanout.SubscribeRooms(server.DeliverLocal); err != nil {
		logger.Errorf("subscribe rooms: %v", err)
		os.Exit(1)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET(cfg.WSPath, server.HandleWS)
	api := r.Group("/api/v1", mid.Middleware(jwtOpts))
	chatapi.NewAPI(store, cfg.HistoryPageSize).Mount(api)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		logger.Infof("gateway %s listening on %s", cfg.NodeID, cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("http server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("shutting down")
	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	_ = srv.Shutdown(sctx)
}
