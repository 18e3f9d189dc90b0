package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"seeker-scratch/internal/address"
	"seeker-scratch/internal/models"
	"seeker-scratch/internal/services"
)

type UserHandler struct {
	state    *services.LedgerState
	actions  *services.AccountActions
	settings *services.Settings
}

func NewUserHandler(state *services.LedgerState, actions *services.AccountActions, settings *services.Settings) *UserHandler {
	return &UserHandler{
		state:    state,
		actions:  actions,
		settings: settings,
	}
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	profile := h.state.Profile()
	if profile == nil {
		c.JSON(http.StatusOK, gin.H{"profile": nil})
		return
	}

	resp := gin.H{
		"profile":    profile,
		"multiplier": profile.Multiplier(),
		"won_sol":    models.LamportsToSOL(profile.TotalWon),
		"spent_sol":  models.LamportsToSOL(profile.TotalSpent),
	}
	if tier, ok := models.TierForMultiplier(int(profile.MultiplierCache)); ok {
		resp["nft_tier"] = tier
	}
	if rank, ok := h.state.Rank(profile.Owner); ok {
		resp["rank"] = rank
	}
	c.JSON(http.StatusOK, resp)
}

type updateProfileRequest struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	sig, err := h.actions.UpdateProfile(c.Request.Context(), req.Name, req.Avatar)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"signature": sig.String(),
		"profile":   h.state.Profile(),
	})
}

type referralRequest struct {
	Referrer string `json:"referrer" binding:"required"`
}

func (h *UserHandler) RegisterReferral(c *gin.Context) {
	var req referralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}
	referrer, err := address.ParsePublicKey(req.Referrer)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid referrer address"})
		return
	}

	sig, err := h.actions.RegisterReferral(c.Request.Context(), referrer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "signature": sig.String()})
}

type mintRequest struct {
	Tier string `json:"tier" binding:"required"`
}

func (h *UserHandler) MintBonusNFT(c *gin.Context) {
	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}
	tier, err := models.ParseNFTTier(req.Tier)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sig, err := h.actions.MintBonusNFT(c.Request.Context(), tier)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"signature":  sig.String(),
		"tier":       tier,
		"multiplier": tier.Multiplier(),
	})
}

func (h *UserHandler) GetBonusNFT(c *gin.Context) {
	owner, ok := h.state.Owner()
	if !ok {
		respondError(c, services.ErrSignerUnavailable)
		return
	}
	nft, err := h.actions.BonusNFT(c.Request.Context(), owner)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to get bonus NFT",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"nft": nft})
}

func (h *UserHandler) GetLeaderboard(c *gin.Context) {
	entries, updatedAt := h.state.Leaderboard()
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	c.JSON(http.StatusOK, gin.H{
		"entries":    entries,
		"updated_at": updatedAt,
	})
}

func (h *UserHandler) GetRank(c *gin.Context) {
	wallet, err := address.ParsePublicKey(c.Param("wallet"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
		return
	}
	rank, ok := h.state.Rank(wallet)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"wallet": wallet, "ranked": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": wallet, "ranked": true, "rank": rank})
}

func (h *UserHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Get())
}

type settingsRequest struct {
	Sound   *bool `json:"sound"`
	Haptics *bool `json:"haptics"`
}

func (h *UserHandler) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	prefs := h.settings.Get()
	if req.Sound != nil {
		prefs.SoundEnabled = *req.Sound
	}
	if req.Haptics != nil {
		prefs.HapticsEnabled = *req.Haptics
	}
	if err := h.settings.Update(prefs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to save settings",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, prefs)
}
