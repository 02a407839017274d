package router

import (
	"github.com/labstack/echo/v4"

	authCtrl "umbra/pkg/auth/controller"
	docCtrl "umbra/pkg/document/controller"
	gapCtrl "umbra/pkg/gaps/controller"
	graphCtrl "umbra/pkg/graph/controller"
	ingestCtrl "umbra/pkg/ingest/controller"
	"umbra/pkg/middleware"
	pubCtrl "umbra/pkg/publication/controller"
	searchCtrl "umbra/pkg/search/controller"
)

type Controllers struct {
	Auth         authCtrl.AuthController
	Publications pubCtrl.PublicationController
	Search       searchCtrl.SearchController
	Graph        graphCtrl.GraphController
	Gaps         gapCtrl.GapController
	Documents    docCtrl.DocumentController
	Ingest       ingestCtrl.IngestController
	Health       interface{ Health(echo.Context) error }
}

func New(e *echo.Echo, c Controllers) *echo.Echo {
	e.GET("/health", c.Health.Health)

	api := e.Group("/api", middleware.Identity())
	user := middleware.RequireUser()

	api.GET("/whoami", c.Auth.WhoAmI)
	api.DELETE("/whoami", c.Auth.Forget)

	api.GET("/publications", c.Publications.List)
	api.POST("/publications", c.Publications.Create)
	api.GET("/publications/:id", c.Publications.Get)
	api.POST("/publications/:id/process", c.Publications.Process)
	api.POST("/publications/:id/summarize", c.Publications.Summarize)
	api.GET("/publications/:id/citation", c.Publications.Citation)

	api.POST("/search", c.Search.Search)
	api.GET("/search/history", c.Search.History, user)
	api.POST("/search/:id/click", c.Search.Click)

	api.GET("/graph", c.Graph.Graph)
	api.GET("/graph/temporal", c.Graph.Temporal)
	api.GET("/graph/filter", c.Graph.Filter)
	api.GET("/graph/nodes", c.Graph.SearchNodes)
	api.GET("/graph/nodes/:id/neighbors", c.Graph.Neighbors)
	api.POST("/graph/build", c.Graph.Build)
	api.POST("/graph/layout", c.Graph.Layout)

	api.POST("/gaps/identify", c.Gaps.Identify)
	api.GET("/gaps", c.Gaps.List)
	api.POST("/gaps/:id/upvote", c.Gaps.Upvote, user)
	api.PATCH("/gaps/:id", c.Gaps.UpdateStatus)

	api.POST("/documents", c.Documents.Create)
	api.GET("/documents/:id", c.Documents.Get)
	api.PUT("/documents/:id", c.Documents.UpdateContent)
	api.POST("/documents/:id/citations", c.Documents.SuggestCitations)
	api.PATCH("/citations/:id", c.Documents.ReviewSuggestion, user)

	api.POST("/ingest/url", c.Ingest.IngestURL)
	api.POST("/ingest/seed", c.Ingest.Seed)
	return e
}
