package controller

import "github.com/labstack/echo/v4"

type GraphController interface {
	Graph(c echo.Context) error
	Temporal(c echo.Context) error
	Filter(c echo.Context) error
	SearchNodes(c echo.Context) error
	Neighbors(c echo.Context) error
	Build(c echo.Context) error
	Layout(c echo.Context) error
}
