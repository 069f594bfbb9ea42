package svc

import (
	"context"
	"discuss/config"
	"discuss/internal/infra/cache"
	"discuss/internal/infra/db"
	"discuss/internal/infra/mq"
	"discuss/internal/infra/storage"
	"discuss/internal/middleware"
	"discuss/internal/store"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceContext struct {
	Config   *config.Config
	DB       *gorm.DB
	Store    *store.Store
	Cache    *cache.RedisCache
	Rabbit   *mq.RabbitMQ
	Minio    *storage.FileStorage
	Registry *prometheus.Registry

	Consumer       *mq.Consumer
	tracerProvider *trace.TracerProvider
	stopConsumer   context.CancelFunc
}

// NewServiceContext 所有依赖初始化的总入口。Redis、RabbitMQ、MinIO、Jaeger 都是可选的，
// 连不上时降级运行；数据库必须可用。
func NewServiceContext(cfg *config.Config) (*ServiceContext, error) {
	dbConn, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	s := &ServiceContext{Config: cfg, DB: dbConn, Registry: prometheus.NewRegistry()}
	s.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rdb, err := cache.New(cfg)
	if err != nil {
		zap.L().Warn("Redis connection failed, continuing without Redis", zap.Error(err))
	} else {
		zap.L().Info("Redis connected successfully")
		s.Cache = rdb
	}

	rabbit, err := mq.New(cfg)
	if err != nil {
		zap.L().Warn("RabbitMQ connection failed, counters are updated inline", zap.Error(err))
	} else {
		zap.L().Info("RabbitMQ connected successfully")
		s.Rabbit = rabbit
	}

	minioSvc, err := storage.NewFileStorage(
		cfg.MinioEndpoint,  // 内部连接用: "minio:9000"
		cfg.MinioPublicURL, // 外部展示用: "http://localhost:9000"
		cfg.MinioAccessKey,
		cfg.MinioSecretKey,
		cfg.MinioBucket,
	)
	if err != nil {
		zap.L().Warn("MinIO unavailable, avatars are served as raw keys", zap.Error(err))
	} else {
		s.Minio = minioSvc
	}

	tp, err := middleware.InitTracer("discuss-service", cfg.AppEnv, cfg.JaegerEndpoint)
	if err != nil {
		zap.L().Warn("failed to init tracer", zap.Error(err))
	} else {
		s.tracerProvider = tp
	}

	s.Store = s.newStore()
	return s, nil
}

func (s *ServiceContext) newStore() *store.Store {
	var opts []store.Option
	if s.Cache != nil {
		opts = append(opts, store.WithCache(s.Cache, s.Config.ThreadCacheTTL))
	}
	if s.Minio != nil {
		opts = append(opts, store.WithAvatarURL(s.Minio.AvatarURL))
	}
	st := store.New(s.DB, opts...)
	if s.Rabbit != nil {
		// 计数交给队列消费者，发送失败时由 st 同步处理
		st = store.New(s.DB, append(opts, store.WithEvents(mq.NewPublisher(s.Rabbit, st)))...)
		s.Consumer = mq.NewConsumer(s.Rabbit, st)
	}
	return st
}

// StartConsumers 启动队列消费者，Close 时停止
func (s *ServiceContext) StartConsumers() {
	if s.Consumer == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stopConsumer = cancel
	s.Consumer.Start(ctx)
}

func (s *ServiceContext) Close() {
	if s.stopConsumer != nil {
		s.stopConsumer()
		s.Consumer.Wait()
	}

	if s.tracerProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.tracerProvider.Shutdown(ctx); err != nil {
			zap.L().Error("Tracer shutdown error", zap.Error(err))
		}
	}

	if s.Rabbit != nil {
		s.Rabbit.Close()
		zap.L().Info("RabbitMQ closed")
	}
	if s.Cache != nil {
		_ = s.Cache.Close()
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
