package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string `json:"status"`
	Store       string `json:"store"`
	StoreDriver string `json:"storeDriver"`
	Environment string `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	resp := healthResponse{
		Status:      "ok",
		Store:       "ok",
		StoreDriver: h.cfg.Store.Driver,
		Environment: h.cfg.Environment,
	}

	if err := h.store.Ping(ctx); err != nil {
		h.logger(c).Error().Err(err).Msg("store ping failed")
		resp.Status = "degraded"
		resp.Store = "error"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, resp)
}
