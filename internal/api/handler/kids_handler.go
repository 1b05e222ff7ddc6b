package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/obalifehub/lifehub/internal/core/ports"
)

// KidsHandler serves the Kids Zone. Routes are gated on the kids capability.
type KidsHandler struct {
	ledger  ports.LedgerService
	catalog ports.CatalogService
}

func NewKidsHandler(ledger ports.LedgerService, catalog ports.CatalogService) *KidsHandler {
	return &KidsHandler{ledger: ledger, catalog: catalog}
}

// Activities lists active activities with the caller's progress.
//
// @Summary      List activities
// @Tags         kids
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listActivitiesResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/kids/activities [get]
func (h *KidsHandler) Activities(c echo.Context) error {
	_, uid, err := ctxSession(c)
	if err != nil {
		return err
	}
	views, err := h.catalog.Activities(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listActivitiesResponse{Data: toActivityResponses(views)})
}

// Complete awards an activity's coins once. Completing it again returns
// already_completed with no coins.
//
// @Summary      Complete an activity
// @Tags         kids
// @Produce      json
// @Security     BearerAuth
// @Param        id               path      string  true   "Activity id"
// @Param        Idempotency-Key  header    string  false  "Repeating a key replays the first result"
// @Success      200              {object}  ledgerResponse
// @Failure      401              {object}  errorResponse
// @Failure      403              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Router       /v1/kids/activities/{id}/complete [post]
func (h *KidsHandler) Complete(c echo.Context) error {
	s, uid, err := ctxSession(c)
	if err != nil {
		return err
	}

	res, err := h.ledger.EarnActivity(c.Request().Context(), ports.EarnActivityInput{
		UserID:         uid,
		ActivityID:     c.Param("id"),
		IdempotencyKey: c.Request().Header.Get(idempotencyHeader),
	})
	if err != nil {
		return err
	}
	applyResult(c, s, uid, res)
	return c.JSON(http.StatusOK, toLedgerResponse(res))
}
