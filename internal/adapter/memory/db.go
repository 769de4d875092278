package memory

import (
	"sync"

	"github.com/google/uuid"

	domainbuild "github.com/alanyang/build-mesh/internal/domain/build"
	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	domaincoord "github.com/alanyang/build-mesh/internal/domain/coordinator"
	domainworker "github.com/alanyang/build-mesh/internal/domain/worker"
)

// DB is the shared in-process state behind the memory repositories, the way one pgx pool
// sits behind every Postgres repository. One mutex guards all tables, so cross-table
// checks (a claim and the builds referencing it) are atomic.
type DB struct {
	mu           sync.Mutex
	nextID       int64
	requests     map[int64]domainbr.BuildRequest
	claims       map[int64]domainbr.Claim
	workers      map[uuid.UUID]domainworker.Worker
	builds       map[uuid.UUID]domainbuild.Build
	coordinators map[uuid.UUID]domaincoord.Coordinator
}

func NewDB() *DB {
	return &DB{
		requests:     make(map[int64]domainbr.BuildRequest),
		claims:       make(map[int64]domainbr.Claim),
		workers:      make(map[uuid.UUID]domainworker.Worker),
		builds:       make(map[uuid.UUID]domainbuild.Build),
		coordinators: make(map[uuid.UUID]domaincoord.Coordinator),
	}
}

// hasRunningBuild must be called with mu held.
func (db *DB) hasRunningBuild(requestID int64) bool {
	for _, b := range db.builds {
		if b.RequestID == requestID && !b.Finished() {
			return true
		}
	}
	return false
}
