package build

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	buildsvc "github.com/alanyang/build-mesh/internal/service/build"
	"github.com/alanyang/build-mesh/internal/transport/respond"
)

func Register(rg *gin.RouterGroup, svc *buildsvc.Service) {
	rg.GET("/:id", get(svc))
	rg.POST("/:id/finish", finish(svc))
}

type finishReq struct {
	Result domainbr.Result `json:"result" binding:"required,oneof=success failure"`
}

func get(svc *buildsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			respond.BadRequest(c, "invalid id")
			return
		}
		b, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

func finish(svc *buildsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			respond.BadRequest(c, "invalid id")
			return
		}
		var req finishReq
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, err.Error())
			return
		}

		b, err := svc.FinishBuild(c.Request.Context(), id, req.Result)
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}
