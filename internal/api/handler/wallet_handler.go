package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/obalifehub/lifehub/internal/core/domain"
	"github.com/obalifehub/lifehub/internal/core/ports"
	"github.com/obalifehub/lifehub/internal/core/service"
)

const idempotencyHeader = "Idempotency-Key"

// WalletHandler serves rewards, redemption and the coin history.
type WalletHandler struct {
	ledger  ports.LedgerService
	catalog ports.CatalogService
}

func NewWalletHandler(ledger ports.LedgerService, catalog ports.CatalogService) *WalletHandler {
	return &WalletHandler{ledger: ledger, catalog: catalog}
}

// Rewards lists active rewards, cheapest first, flagged with whether the
// caller can afford them.
//
// @Summary      List rewards
// @Tags         wallet
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listRewardsResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/rewards [get]
func (h *WalletHandler) Rewards(c echo.Context) error {
	s, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	rewards, err := h.catalog.Rewards(c.Request().Context())
	if err != nil {
		return err
	}

	var balance int64
	if p := s.Snapshot().Profile; p != nil {
		balance = p.CoinsBalance
	}
	return c.JSON(http.StatusOK, listRewardsResponse{Data: toRewardResponses(rewards, balance)})
}

// Redeem spends coins on a reward.
//
// @Summary      Redeem a reward
// @Tags         wallet
// @Produce      json
// @Security     BearerAuth
// @Param        id               path      string  true   "Reward id"
// @Param        Idempotency-Key  header    string  false  "Repeating a key replays the first result"
// @Success      200              {object}  ledgerResponse
// @Failure      401              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Router       /v1/rewards/{id}/redeem [post]
func (h *WalletHandler) Redeem(c echo.Context) error {
	s, uid, err := ctxSession(c)
	if err != nil {
		return err
	}

	res, err := h.ledger.RedeemReward(c.Request().Context(), ports.RedeemRewardInput{
		UserID:         uid,
		RewardID:       c.Param("id"),
		IdempotencyKey: c.Request().Header.Get(idempotencyHeader),
	})
	if err != nil {
		return err
	}
	applyResult(c, s, uid, res)
	return c.JSON(http.StatusOK, toLedgerResponse(res))
}

// Claims lists the caller's claimed rewards, newest first.
//
// @Summary      My claimed rewards
// @Tags         wallet
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listClaimsResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/me/rewards [get]
func (h *WalletHandler) Claims(c echo.Context) error {
	_, uid, err := ctxSession(c)
	if err != nil {
		return err
	}
	claims, err := h.catalog.Claims(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listClaimsResponse{Data: toClaimResponses(claims)})
}

// Transactions returns the newest coin transactions.
//
// @Summary      Coin history
// @Tags         wallet
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Max items (default 10, max 100)"
// @Success      200    {object}  listTransactionsResponse
// @Failure      400    {object}  errorResponse
// @Failure      401    {object}  errorResponse
// @Router       /v1/wallet/transactions [get]
func (h *WalletHandler) Transactions(c echo.Context) error {
	_, uid, err := ctxSession(c)
	if err != nil {
		return err
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	txs, err := h.ledger.History(c.Request().Context(), uid, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listTransactionsResponse{Data: toTransactionResponses(txs)})
}

// Reconcile recomputes balance, lifetime total and level from the
// transaction log.
//
// @Summary      Reconcile wallet
// @Tags         wallet
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/wallet/reconcile [post]
func (h *WalletHandler) Reconcile(c echo.Context) error {
	s, uid, err := ctxSession(c)
	if err != nil {
		return err
	}
	p, err := h.ledger.Reconcile(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	applyResult(c, s, uid, &ports.LedgerResult{Profile: p})

	sp := domain.Enrich(*p)
	return c.JSON(http.StatusOK, toProfileResponse(&sp))
}

// applyResult feeds the row written by the ledger into the caller's session
// so it does not wait for the change feed.
func applyResult(c echo.Context, s *service.Session, uid string, res *ports.LedgerResult) {
	if res == nil || res.Profile == nil {
		return
	}
	row := *res.Profile
	s.Apply(c.Request().Context(), domain.ProfileChanged{
		UserID:   uid,
		Kind:     domain.ChangeUpdate,
		Row:      &row,
		Source:   "ledger",
		Received: time.Now(),
	})
}
