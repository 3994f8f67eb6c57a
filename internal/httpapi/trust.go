package httpapi

import (
	"net/http"

	"datamarket-settlement/services/trust"

	"github.com/gin-gonic/gin"
)

type trustResponse struct {
	Score float64     `json:"score"`
	Level trust.Level `json:"level"`
}

func (h *Handler) GetUserTrust(c *gin.Context) {
	score := h.trust.UserScore(c.Request.Context(), c.Param("user_id"))
	c.JSON(http.StatusOK, trustResponse{Score: score, Level: trust.LevelFor(score)})
}

func (h *Handler) GetBuyerTrust(c *gin.Context) {
	score := h.trust.BuyerScore(c.Request.Context(), c.Param("buyer_id"))
	c.JSON(http.StatusOK, trustResponse{Score: score, Level: trust.LevelFor(score)})
}
