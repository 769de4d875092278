package buildrequest

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("build request not found")
	ErrAlreadyComplete = errors.New("build request already complete")
	ErrClaimed         = errors.New("build request is claimed")
)

type Result string

const (
	ResultSuccess   Result = "success"
	ResultFailure   Result = "failure"
	ResultCancelled Result = "cancelled"
	ResultLost      Result = "lost"
)

// BuildRequest is a unit of pending work for one builder.
type BuildRequest struct {
	ID           int64      `json:"id"`
	Builder      string     `json:"builder"`
	Priority     int        `json:"priority"`
	RequiredTags []string   `json:"required_tags"`
	Reason       string     `json:"reason,omitempty"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	Complete     bool       `json:"complete"`
	Results      *Result    `json:"results,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

func New(builder string, priority int, requiredTags []string, reason string) BuildRequest {
	if requiredTags == nil {
		requiredTags = []string{}
	}
	return BuildRequest{
		Builder:      builder,
		Priority:     priority,
		RequiredTags: requiredTags,
		Reason:       reason,
		SubmittedAt:  time.Now().UTC(),
	}
}

// Older reports whether r was submitted before other. Equal timestamps fall back to the id
// so the order is total.
func (r BuildRequest) Older(other BuildRequest) bool {
	if !r.SubmittedAt.Equal(other.SubmittedAt) {
		return r.SubmittedAt.Before(other.SubmittedAt)
	}
	return r.ID < other.ID
}

// SortOldestFirst orders requests FIFO by submission time, ties broken by id.
func SortOldestFirst(reqs []BuildRequest) {
	sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].Older(reqs[j]) })
}

// Claim records which coordinator holds a request.
type Claim struct {
	RequestID     int64     `json:"request_id"`
	CoordinatorID uuid.UUID `json:"coordinator_id"`
	ClaimedAt     time.Time `json:"claimed_at"`
}

// ClaimResult partitions a claim batch. Every requested id lands in exactly one slice.
type ClaimResult struct {
	Claimed    []int64 `json:"claimed"`
	Conflicted []int64 `json:"conflicted"`
}

func (r ClaimResult) IsClaimed(id int64) bool {
	for _, c := range r.Claimed {
		if c == id {
			return true
		}
	}
	return false
}

type ListFilters struct {
	Builder   *string
	Claimed   *bool
	Complete  *bool
	ClaimedBy *uuid.UUID
	Limit     int
}
