package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/likereader/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// リーダー（いずれも*reader.Storeが実装する）
	Reader   ReaderServiceInterface
	Contents ContentServiceInterface
	Creators CreatorServiceInterface
	Session  SessionServiceInterface

	// 永続化が無効な場合はnil
	Snapshots SnapshotController

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → RateLimit(General)
//
// ブックマーク・フォローの反転と共有URLの保存には更新系のレート制限を追加する。
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	readerHandler := NewReaderHandler(deps.Reader)
	contentHandler := NewContentHandler(deps.Contents)
	creatorHandler := NewCreatorHandler(deps.Creators)
	sessionHandler := NewSessionHandler(deps.Session, deps.Snapshots)

	// --- 運用ルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- リーダーAPI ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		mutation := deps.RateLimiter.MutationMiddleware()

		r.Route("/api/reader", func(r chi.Router) {
			r.Get("/status", readerHandler.GetStatus)

			r.Route("/followed", func(r chi.Router) {
				r.Get("/", readerHandler.ListFollowed)
				r.Post("/refresh", readerHandler.RefreshFollowed)
				r.Post("/more", readerHandler.FetchMoreFollowed)
			})

			r.Route("/bookmarks", func(r chi.Router) {
				r.Get("/", readerHandler.ListBookmarks)
				r.Post("/refresh", readerHandler.RefreshBookmarks)
				r.With(mutation).Post("/", contentHandler.SaveBookmark)
			})

			r.Route("/contents", func(r chi.Router) {
				r.Get("/", contentHandler.GetContent)
				r.Post("/details", contentHandler.FetchDetails)
				r.Post("/like-stat", contentHandler.FetchLikeStat)
				r.With(mutation).Put("/bookmark", contentHandler.ToggleBookmark)
			})

			r.Route("/creators", func(r chi.Router) {
				r.Get("/", creatorHandler.ListCreators)
				r.Post("/refresh", creatorHandler.RefreshCreators)

				r.Route("/{likerID}", func(r chi.Router) {
					r.Get("/", creatorHandler.GetCreator)
					r.Post("/profile", creatorHandler.FetchProfile)
					r.With(mutation).Put("/follow", creatorHandler.ToggleFollow)
				})
			})

			r.Route("/session", func(r chi.Router) {
				r.Delete("/", sessionHandler.DeleteSession)
				r.Post("/snapshot", sessionHandler.SaveSnapshot)
			})
		})
	})

	return r
}
