package controller

import "github.com/labstack/echo/v4"

type DocumentController interface {
	Create(c echo.Context) error
	Get(c echo.Context) error
	UpdateContent(c echo.Context) error
	SuggestCitations(c echo.Context) error
	ReviewSuggestion(c echo.Context) error
}
