package controller

import "github.com/labstack/echo/v4"

type IngestController interface {
	IngestURL(c echo.Context) error
	Seed(c echo.Context) error
}
