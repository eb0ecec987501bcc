package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/atomic"
)

// A HealthController reports the liveness and readiness of the server. It implements the interface `Controller`.
type HealthController struct {
	GroupName string
	// Ready 在 SDK 与各服务初始化完成后置为 true。
	Ready *atomic.Bool
}

// GetGroupName returns the group name
func (hc *HealthController) GetGroupName() string {
	return hc.GroupName
}

// GetEndpointMap implements the interface `Controller` and returns the API endpoints and handlers defined and managed by HealthController.
func (hc *HealthController) GetEndpointMap() EndpointMap {
	pingHandler := func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	}

	return EndpointMap{
		urlMethodPair{"/ping", "GET"}:  []gin.HandlerFunc{pingHandler},
		urlMethodPair{"/ping", "POST"}: []gin.HandlerFunc{pingHandler},
		urlMethodPair{"/livez", "GET"}: []gin.HandlerFunc{func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		}},
		urlMethodPair{"/readyz", "GET"}: []gin.HandlerFunc{hc.handleReadyz},
	}
}

func (hc *HealthController) handleReadyz(c *gin.Context) {
	if hc.Ready == nil || !hc.Ready.Load() {
		c.String(http.StatusServiceUnavailable, "not ready")
		return
	}

	c.String(http.StatusOK, "ready")
}
