package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RunSettlement runs one settlement pass synchronously. The scheduled path
// goes through the task queue; this endpoint exists for operators.
func (h *Handler) RunSettlement(c *gin.Context) {
	summary, err := h.settlement.RunAutoSettlement(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
