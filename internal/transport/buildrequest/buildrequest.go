package buildrequest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	brsvc "github.com/alanyang/build-mesh/internal/service/buildrequest"
	"github.com/alanyang/build-mesh/internal/transport/respond"
)

func Register(rg *gin.RouterGroup, svc *brsvc.Service) {
	rg.POST("", submit(svc))
	rg.GET("", list(svc))
	rg.GET("/:id", get(svc))
	rg.POST("/:id/cancel", cancel(svc))
}

type submitReq struct {
	Builder      string   `json:"builder" binding:"required"`
	Priority     int      `json:"priority"`
	RequiredTags []string `json:"required_tags"`
	Reason       string   `json:"reason"`
}

func submit(svc *brsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req submitReq
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, err.Error())
			return
		}

		created, err := svc.Submit(c.Request.Context(), brsvc.SubmitInput{
			Builder:      req.Builder,
			Priority:     req.Priority,
			RequiredTags: req.RequiredTags,
			Reason:       req.Reason,
		})
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func list(svc *brsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filters domainbr.ListFilters

		if v := c.Query("builder"); v != "" {
			filters.Builder = &v
		}
		for key, dst := range map[string]**bool{"claimed": &filters.Claimed, "complete": &filters.Complete} {
			if v := c.Query(key); v != "" {
				b, err := strconv.ParseBool(v)
				if err != nil {
					respond.BadRequest(c, "invalid "+key)
					return
				}
				*dst = &b
			}
		}
		if v := c.Query("claimed_by"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				respond.BadRequest(c, "invalid claimed_by")
				return
			}
			filters.ClaimedBy = &id
		}
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				respond.BadRequest(c, "invalid limit")
				return
			}
			filters.Limit = n
		}

		reqs, err := svc.List(c.Request.Context(), filters)
		if err != nil {
			respond.Error(c, err)
			return
		}
		if reqs == nil {
			reqs = []domainbr.BuildRequest{}
		}
		c.JSON(http.StatusOK, reqs)
	}
}

func get(svc *brsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		req, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, req)
	}
}

func cancel(svc *brsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		req, err := svc.Cancel(c.Request.Context(), id)
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, req)
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respond.BadRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
