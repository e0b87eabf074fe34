// Package handler contains the HTTP handlers. They bind and validate
// request bodies, delegate to the service and repository layers, and map
// domain errors onto HTTP status codes; no business rules live here.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/lumarkic/volonterko/internal/repository"
)

// Validator adapts go-playground/validator to echo's Validator interface
// so handlers can call c.Validate on bound request bodies.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{v: validator.New()}
}

func (cv *Validator) Validate(i interface{}) error {
	if err := cv.v.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// getUserID extracts the authenticated user's id stored by the JWT
// middleware.
func getUserID(c echo.Context) (uint64, error) {
	if id, ok := c.Get("user_id").(uint64); ok && id > 0 {
		return id, nil
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// domainError translates the repository sentinels into JSON error
// responses. Returns false when err is not a known domain error, in
// which case the caller reports a 500.
func domainError(c echo.Context, err error) (bool, error) {
	switch {
	case errors.Is(err, repository.ErrForbidden):
		return true, c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrConflict):
		return true, c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	case errors.Is(err, repository.ErrInvalidState):
		return true, c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid state"})
	case errors.Is(err, repository.ErrActionNotFound):
		return true, c.JSON(http.StatusNotFound, echo.Map{"error": "action not found"})
	case errors.Is(err, repository.ErrSignupNotFound):
		return true, c.JSON(http.StatusNotFound, echo.Map{"error": "signup not found"})
	case errors.Is(err, repository.ErrOrganizationNotFound):
		return true, c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
	}
	return false, nil
}
