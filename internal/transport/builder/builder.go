package builder

import (
	"net/http"

	"github.com/gin-gonic/gin"

	buildersvc "github.com/alanyang/build-mesh/internal/service/builder"
	"github.com/alanyang/build-mesh/internal/transport/respond"
)

func Register(rg *gin.RouterGroup, svc *buildersvc.Service) {
	rg.GET("", list(svc))
	rg.GET("/:name", get(svc))
	rg.POST("/:name/attention", attention(svc))
}

func list(svc *buildersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.List())
	}
}

func get(svc *buildersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := svc.Get(c.Param("name"))
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// attention asks the distributor to look at one builder's queue. The pass runs in the
// background, so the handler only acknowledges.
func attention(svc *buildersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.RequestAttention(c.Param("name")); err != nil {
			respond.Error(c, err)
			return
		}
		c.Status(http.StatusAccepted)
	}
}
