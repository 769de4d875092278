package distributor

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alanyang/build-mesh/internal/service/distributor"
)

// StatusSource reports the distributor's loop state.
type StatusSource interface {
	State() distributor.Status
}

func Register(rg *gin.RouterGroup, src StatusSource) {
	rg.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, src.State())
	})
}
