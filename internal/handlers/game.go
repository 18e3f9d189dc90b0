package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"seeker-scratch/internal/models"
	"seeker-scratch/internal/services"
)

type GameHandler struct {
	catalog *models.Catalog
	settler *services.SettlementOrchestrator
	reveal  *services.RevealMachine
	state   *services.LedgerState
}

func NewGameHandler(catalog *models.Catalog, settler *services.SettlementOrchestrator, reveal *services.RevealMachine, state *services.LedgerState) *GameHandler {
	return &GameHandler{
		catalog: catalog,
		settler: settler,
		reveal:  reveal,
		state:   state,
	}
}

// statusFor maps a service error to the HTTP status shown to the UI.
func statusFor(err error) int {
	var ledgerErr *services.LedgerError
	switch {
	case errors.Is(err, services.ErrPurchasePending),
		errors.Is(err, services.ErrNoRevealSession),
		errors.Is(err, services.ErrFinishUnavailable),
		errors.Is(err, services.ErrAlreadyReferred),
		errors.Is(err, services.ErrAlreadyHasNFT):
		return http.StatusConflict
	case errors.Is(err, services.ErrUnknownCard):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, services.ErrWalletRejected):
		return http.StatusForbidden
	case errors.Is(err, services.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, services.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, services.ErrSignerUnavailable),
		errors.Is(err, services.ErrGamePaused):
		return http.StatusServiceUnavailable
	case errors.As(err, &ledgerErr):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": services.UserMessage(err)})
}

func (h *GameHandler) ListCards(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"cards":   h.catalog.All(),
		"pending": h.settler.Pending(),
	})
}

func (h *GameHandler) BuyCard(c *gin.Context) {
	card := models.CardType(c.Param("id"))

	settlement, err := h.settler.Purchase(c.Request.Context(), card)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":      services.UserMessage(err),
			"settlement": settlement,
		})
		return
	}

	snapshot := h.reveal.Begin(card, *settlement.Prize)

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"settlement": settlement,
		"prize_sol":  settlement.PrizeSOL(),
		"reveal":     snapshot,
	})
}

type scratchRequest struct {
	X *float64 `json:"x" binding:"required"`
	Y *float64 `json:"y" binding:"required"`
}

func (h *GameHandler) GetReveal(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"reveal": h.reveal.Snapshot()})
}

func (h *GameHandler) Scratch(c *gin.Context) {
	var req scratchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	snapshot, err := h.reveal.Scratch(*req.X, *req.Y)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reveal": snapshot})
}

func (h *GameHandler) Finish(c *gin.Context) {
	snapshot, err := h.reveal.Finish()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reveal": snapshot})
}

// Reset closes the card: the reveal session and its settlement are dropped.
func (h *GameHandler) Reset(c *gin.Context) {
	h.settler.Discard()
	c.JSON(http.StatusOK, gin.H{"reveal": h.reveal.Reset()})
}

func (h *GameHandler) GetBalance(c *gin.Context) {
	owner, ok := h.state.Owner()
	if !ok {
		respondError(c, services.ErrSignerUnavailable)
		return
	}

	lamports, known := h.state.Balance()
	if !known {
		if err := h.state.RefreshBalance(c.Request.Context()); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "Failed to get balance",
				"details": err.Error(),
			})
			return
		}
		lamports, _ = h.state.Balance()
	}

	c.JSON(http.StatusOK, models.BalanceResponse{
		Owner:    owner,
		Lamports: lamports,
		SOL:      models.LamportsToSOL(lamports),
	})
}

func (h *GameHandler) GetTreasury(c *gin.Context) {
	resp := gin.H{"treasury": nil}
	if lamports, known := h.state.TreasuryLamports(); known {
		resp["vault_lamports"] = lamports
		resp["vault_sol"] = models.LamportsToSOL(lamports)
	}
	if treasury := h.state.Treasury(); treasury != nil {
		resp["treasury"] = treasury
		resp["payout_rate"] = treasury.PayoutRate()
		resp["balance_sol"] = models.LamportsToSOL(treasury.Balance)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *GameHandler) GetSettlement(c *gin.Context) {
	last, lastError := h.settler.LastSettlement()
	c.JSON(http.StatusOK, gin.H{
		"settlement": last,
		"last_error": lastError,
		"pending":    h.settler.Pending(),
	})
}
