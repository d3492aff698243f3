package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/personachat-backend/internal/http/response"
	"github.com/yungbote/personachat-backend/internal/services"
)

type AdminHandler struct {
	breakers services.BreakerAdmin
}

func NewAdminHandler(breakers services.BreakerAdmin) *AdminHandler {
	return &AdminHandler{breakers: breakers}
}

// GET /api/admin/circuit-breakers
func (h *AdminHandler) ListBreakers(c *gin.Context) {
	response.RespondOK(c, gin.H{"circuitBreakers": h.breakers.List(c.Request.Context())})
}

// POST /api/admin/circuit-breakers/:personaId/reset
func (h *AdminHandler) ResetBreaker(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	actor := rd.UserID
	snap, err := h.breakers.Reset(c.Request.Context(), &actor, c.Param("personaId"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"circuitBreaker": snap})
}
