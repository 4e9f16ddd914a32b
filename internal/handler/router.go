package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/isofit/internal/metrics"
	"github.com/hitoshi/isofit/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authenticator     middleware.Authenticator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	MetricsHandler    http.Handler
	HealthChecker     HealthChecker

	// 認証
	AuthService AuthServiceInterface

	// ユーザー
	UserService UserServiceInterface

	// エクササイズ
	ExerciseService ExerciseServiceInterface
	UploadMaxBytes  int64

	// トレーニング・血圧日誌
	TrainingService TrainingServiceInterface
	DiaryService    DiaryServiceInterface

	// メディア配信
	MediaService MediaServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → CORS → SecurityHeaders → (BearerAuth) → RateLimit
//
// 登録・ログイン・エクササイズ参照・メディア配信は認証なしで公開する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService)
	exerciseHandler := NewExerciseHandler(deps.ExerciseService, deps.UploadMaxBytes)
	trainingHandler := NewTrainingHandler(deps.TrainingService)
	diaryHandler := NewDiaryHandler(deps.DiaryService)
	mediaHandler := NewMediaHandler(deps.MediaService)

	// --- 運用ルート ---
	r.Get("/", Banner)
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 認証不要のルート ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Post("/api/register", authHandler.Register)
		r.Post("/api/login", authHandler.Login)

		r.Get("/api/exercises", exerciseHandler.List)
		r.Get("/api/exercises/{id}", exerciseHandler.Get)

		r.Get("/media/*", mediaHandler.Serve)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: BearerAuth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(deps.Authenticator))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ユーザー管理
		r.Route("/api/users/{userId}", func(r chi.Router) {
			r.Put("/", userHandler.Edit)
			r.Delete("/", userHandler.Delete)
		})

		// エクササイズ管理（アップロード専用レート制限を追加）
		upload := deps.RateLimiter.UploadMiddleware()
		r.With(upload).Post("/api/exercises", exerciseHandler.Create)
		r.With(upload).Put("/api/exercises/{id}", exerciseHandler.Update)
		r.Delete("/api/exercises/{id}", exerciseHandler.Delete)

		// トレーニングセッション
		r.Route("/api/trainingSessions", func(r chi.Router) {
			r.Post("/", trainingHandler.Create)
			r.Get("/", trainingHandler.List)
			r.Put("/{sessionId}/{weekNumber}", trainingHandler.Update)
		})

		// 血圧日誌
		r.Post("/api/bloodPressureDiary", diaryHandler.Create)
		r.Put("/api/bloodPressureDiary/{diaryId}/timeSlot/{index}", diaryHandler.UpdateSlot)
		r.Get("/api/bloodPressureDiaries", diaryHandler.List)
	})

	return r
}
