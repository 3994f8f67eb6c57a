package httpapi

import (
	"net/http"

	"datamarket-settlement/pkg/errutil"
	"datamarket-settlement/services/ledger"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetBalance(c *gin.Context) {
	balance, err := h.ledger.GetBalance(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, balance)
}

func (h *Handler) ListRewards(c *gin.Context) {
	rewards, err := h.ledger.ListRewards(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}

type recordRewardRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	Amount      int64  `json:"amount" binding:"required"`
	ReferenceID string `json:"reference_id"`
	Description string `json:"description"`
}

func (h *Handler) RecordReward(c *gin.Context) {
	var req recordRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errutil.BadRequest("invalid request body", err))
		return
	}

	reward, err := h.ledger.RecordReward(c.Request.Context(), ledger.RecordRewardInput{
		UserID:      req.UserID,
		Amount:      req.Amount,
		ReferenceID: req.ReferenceID,
		Description: req.Description,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, reward)
}
