package worker

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainworker "github.com/alanyang/build-mesh/internal/domain/worker"
	workersvc "github.com/alanyang/build-mesh/internal/service/worker"
	"github.com/alanyang/build-mesh/internal/transport/respond"
)

func Register(rg *gin.RouterGroup, svc *workersvc.Service) {
	rg.POST("", connect(svc))
	rg.GET("", list(svc))
	rg.GET("/:id", get(svc))
	rg.POST("/:id/heartbeat", heartbeat(svc))
	rg.DELETE("/:id", disconnect(svc))
}

type connectReq struct {
	Name      string   `json:"name" binding:"required"`
	Builders  []string `json:"builders" binding:"required"`
	Tags      []string `json:"tags"`
	MaxBuilds int      `json:"max_builds"`
}

func connect(svc *workersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req connectReq
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, err.Error())
			return
		}

		w, err := svc.Connect(c.Request.Context(), workersvc.ConnectInput{
			Name:      req.Name,
			Builders:  req.Builders,
			Tags:      req.Tags,
			MaxBuilds: req.MaxBuilds,
		})
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, w)
	}
}

func list(svc *workersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filters domainworker.ListFilters
		if v := c.Query("builder"); v != "" {
			filters.Builder = &v
		}
		if v := c.Query("status"); v != "" {
			s := domainworker.Status(v)
			filters.Status = &s
		}

		workers, err := svc.List(c.Request.Context(), filters)
		if err != nil {
			respond.Error(c, err)
			return
		}
		if workers == nil {
			workers = []domainworker.Worker{}
		}
		c.JSON(http.StatusOK, workers)
	}
}

func get(svc *workersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			respond.BadRequest(c, "invalid id")
			return
		}
		w, err := svc.GetByID(c.Request.Context(), id)
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, w)
	}
}

func heartbeat(svc *workersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			respond.BadRequest(c, "invalid id")
			return
		}
		if err := svc.Heartbeat(c.Request.Context(), id); err != nil {
			respond.Error(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func disconnect(svc *workersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			respond.BadRequest(c, "invalid id")
			return
		}
		if err := svc.Disconnect(c.Request.Context(), id); err != nil {
			respond.Error(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
