package controller

import "github.com/labstack/echo/v4"

type GapController interface {
	Identify(c echo.Context) error
	List(c echo.Context) error
	Upvote(c echo.Context) error
	UpdateStatus(c echo.Context) error
}
