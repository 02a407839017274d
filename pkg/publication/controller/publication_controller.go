package controller

import "github.com/labstack/echo/v4"

type PublicationController interface {
	List(c echo.Context) error
	Get(c echo.Context) error
	Create(c echo.Context) error
	Process(c echo.Context) error
	Summarize(c echo.Context) error
	Citation(c echo.Context) error
}
