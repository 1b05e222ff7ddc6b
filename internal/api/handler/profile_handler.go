package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const streamHeartbeat = 25 * time.Second

// ProfileHandler serves the signed-in user's own profile.
type ProfileHandler struct{}

func NewProfileHandler() *ProfileHandler {
	return &ProfileHandler{}
}

// Me returns the session state and enriched profile. A signed-in user whose
// profile could not be read gets "authenticated" with a null profile.
//
// @Summary      Current profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  meResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/me [get]
func (h *ProfileHandler) Me(c echo.Context) error {
	s, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMeResponse(s.Snapshot()))
}

// Update edits the user-editable profile fields.
//
// @Summary      Update profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Fields to change"
// @Success      200   {object}  profileResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/me [patch]
func (h *ProfileHandler) Update(c echo.Context) error {
	s, _, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	p, err := s.UpdateProfile(c.Request().Context(), toProfileUpdate(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProfileResponse(p))
}

// Reload re-reads the profile from the store.
//
// @Summary      Reload profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  meResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/me/reload [post]
func (h *ProfileHandler) Reload(c echo.Context) error {
	s, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	s.ReloadProfile(c.Request().Context())
	return c.JSON(http.StatusOK, toMeResponse(s.Snapshot()))
}

// Stream pushes a server-sent "profile" event with the current snapshot and
// again after every change until the client disconnects or the session
// ends.
//
// @Summary      Profile change stream
// @Tags         profile
// @Produce      text/event-stream
// @Security     BearerAuth
// @Success      200  {object}  meResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/me/stream [get]
func (h *ProfileHandler) Stream(c echo.Context) error {
	s, _, err := ctxSession(c)
	if err != nil {
		return err
	}

	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			s.Touch()
			data, err := json.Marshal(toMeResponse(snap))
			if err != nil {
				return nil
			}
			if _, err := fmt.Fprintf(res, "event: profile\ndata: %s\n\n", data); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
