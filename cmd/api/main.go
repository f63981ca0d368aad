package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/escola-dev/escola-api/internal/handler"
	"github.com/escola-dev/escola-api/internal/middleware"
	"github.com/escola-dev/escola-api/internal/repository"
	"github.com/escola-dev/escola-api/internal/service"
	"github.com/escola-dev/escola-api/pkg/cache"
	"github.com/escola-dev/escola-api/pkg/config"
	"github.com/escola-dev/escola-api/pkg/database"
	"github.com/escola-dev/escola-api/pkg/export"
	"github.com/escola-dev/escola-api/pkg/logger"
	corsmiddleware "github.com/escola-dev/escola-api/pkg/middleware/cors"
	reqidmiddleware "github.com/escola-dev/escola-api/pkg/middleware/requestid"
	"github.com/escola-dev/escola-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	files, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Boletim.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Boletim.CacheTTL, logr, true)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	turmaRepo := repository.NewTurmaRepository(db)
	alunoRepo := repository.NewAlunoRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	atividadeRepo := repository.NewAtividadeRepository(db)
	entregaRepo := repository.NewEntregaRepository(db)
	avisoRepo := repository.NewAvisoRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	turmaSvc := service.NewTurmaService(turmaRepo, materialRepo, atividadeRepo, avisoRepo, alunoRepo, validate, logr)
	alunoSvc := service.NewAlunoService(alunoRepo, entregaRepo, validate, logr)
	materialSvc := service.NewMaterialService(materialRepo, turmaRepo, files, validate, logr)
	atividadeSvc := service.NewAtividadeService(atividadeRepo, turmaRepo, entregaRepo, files, validate, logr)
	entregaSvc := service.NewEntregaService(entregaRepo, atividadeRepo, turmaRepo, files, cacheSvc, validate, logr)
	avisoSvc := service.NewAvisoService(avisoRepo, turmaRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(turmaRepo, atividadeRepo, entregaRepo, cacheSvc, cfg.Boletim.CacheTTL, logr)
	exportSvc := service.NewExportService(dashboardSvc, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	authHandler := handler.NewAuthHandler(authSvc)
	turmaHandler := handler.NewTurmaHandler(turmaSvc)
	alunoHandler := handler.NewAlunoHandler(alunoSvc)
	materialHandler := handler.NewMaterialHandler(materialSvc, cfg.Uploads.MaxFileSizeBytes)
	atividadeHandler := handler.NewAtividadeHandler(atividadeSvc, cfg.Uploads.MaxFileSizeBytes)
	entregaHandler := handler.NewEntregaHandler(entregaSvc, cfg.Uploads.MaxFileSizeBytes)
	avisoHandler := handler.NewAvisoHandler(avisoSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.GET("/auth/me", authHandler.Me)

		protected.GET("/dashboard", dashboardHandler.Resumo)

		turmas := protected.Group("/turmas")
		{
			turmas.GET("", turmaHandler.List)
			turmas.POST("", turmaHandler.Create)
			turmas.GET("/:id", turmaHandler.Get)
			turmas.PUT("/:id", turmaHandler.Update)
			turmas.DELETE("/:id", turmaHandler.Delete)
			turmas.GET("/:id/resumo", turmaHandler.Resumo)

			turmas.POST("/:id/alunos", turmaHandler.Matricular)
			turmas.DELETE("/:id/alunos/:alunoId", turmaHandler.Desmatricular)

			turmas.GET("/:id/materiais", materialHandler.ListByTurma)
			turmas.POST("/:id/materiais", materialHandler.Create)

			turmas.GET("/:id/atividades", atividadeHandler.ListByTurma)
			turmas.POST("/:id/atividades", atividadeHandler.Create)

			turmas.GET("/:id/avisos", avisoHandler.ListByTurma)
			turmas.POST("/:id/avisos", avisoHandler.Create)

			turmas.GET("/:id/boletim", dashboardHandler.Boletim)
			turmas.GET("/:id/boletim/export", dashboardHandler.BoletimExport)
			turmas.POST("/:id/entregas/atrasadas", entregaHandler.SweepAtrasadas)
		}

		alunos := protected.Group("/alunos")
		{
			alunos.GET("", alunoHandler.List)
			alunos.POST("", alunoHandler.Create)
			alunos.GET("/:id", alunoHandler.Get)
			alunos.PUT("/:id", alunoHandler.Update)
			alunos.DELETE("/:id", alunoHandler.Delete)
		}

		materiais := protected.Group("/materiais")
		{
			materiais.GET("/:id", materialHandler.Get)
			materiais.PUT("/:id", materialHandler.Update)
			materiais.DELETE("/:id", materialHandler.Delete)
			materiais.POST("/:id/arquivo", materialHandler.Upload)
		}

		atividades := protected.Group("/atividades")
		{
			atividades.GET("/:id", atividadeHandler.Get)
			atividades.PUT("/:id", atividadeHandler.Update)
			atividades.DELETE("/:id", atividadeHandler.Delete)
			atividades.POST("/:id/arquivo", atividadeHandler.Upload)
			atividades.POST("/:id/entregas", entregaHandler.Create)
		}

		entregas := protected.Group("/entregas")
		{
			entregas.GET("/:id", entregaHandler.Get)
			entregas.DELETE("/:id", entregaHandler.Delete)
			entregas.POST("/:id/arquivo", entregaHandler.Upload)
			entregas.POST("/:id/atrasada", entregaHandler.MarcarAtrasada)
			entregas.GET("/:id/nota", entregaHandler.Nota)
			entregas.PUT("/:id/nota", entregaHandler.Avaliar)
		}

		avisos := protected.Group("/avisos")
		{
			avisos.GET("/:id", avisoHandler.Get)
			avisos.PUT("/:id", avisoHandler.Update)
			avisos.DELETE("/:id", avisoHandler.Delete)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
