package httpapi

import (
	"net/http"

	"datamarket-settlement/pkg/errutil"

	"github.com/gin-gonic/gin"
)

type createPayoutRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
}

func (h *Handler) CreatePayout(c *gin.Context) {
	var req createPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errutil.BadRequest("invalid request body", err))
		return
	}

	request, err := h.payout.Create(c.Request.Context(), req.UserID, req.Amount)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

func (h *Handler) GetPayout(c *gin.Context) {
	request, err := h.payout.Get(c.Request.Context(), c.Param("payout_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

func (h *Handler) ListPayouts(c *gin.Context) {
	requests, err := h.payout.ListByUser(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payouts": requests})
}

func (h *Handler) MarkPayoutPaid(c *gin.Context) {
	request, err := h.payout.MarkPaid(c.Request.Context(), c.Param("payout_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

type markFailedRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) MarkPayoutFailed(c *gin.Context) {
	var req markFailedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errutil.BadRequest("invalid request body", err))
		return
	}

	request, err := h.payout.MarkFailed(c.Request.Context(), c.Param("payout_id"), req.Reason)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}
