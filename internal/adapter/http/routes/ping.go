package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func addPingRoutes(r gin.IRoutes) {
	r.GET("/ping", ping)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
