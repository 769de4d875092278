// Package respond maps service errors onto HTTP status codes.
package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainbuild "github.com/alanyang/build-mesh/internal/domain/build"
	domainbuilder "github.com/alanyang/build-mesh/internal/domain/builder"
	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	domainworker "github.com/alanyang/build-mesh/internal/domain/worker"
	brsvc "github.com/alanyang/build-mesh/internal/service/buildrequest"
	workersvc "github.com/alanyang/build-mesh/internal/service/worker"
)

// Status returns the HTTP status for err.
func Status(err error) int {
	switch {
	case errors.Is(err, brsvc.ErrInvalidRequest),
		errors.Is(err, workersvc.ErrInvalidWorker):
		return http.StatusBadRequest
	case errors.Is(err, domainbr.ErrNotFound),
		errors.Is(err, domainworker.ErrNotFound),
		errors.Is(err, domainbuild.ErrNotFound),
		errors.Is(err, domainbuilder.ErrUnknownBuilder):
		return http.StatusNotFound
	case errors.Is(err, domainbr.ErrClaimed),
		errors.Is(err, domainbr.ErrAlreadyComplete),
		errors.Is(err, domainbuild.ErrAlreadyFinished):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func Error(c *gin.Context, err error) {
	c.JSON(Status(err), gin.H{"error": err.Error()})
}

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
