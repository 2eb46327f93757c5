package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"knowledge-hub/internal/comment/domain"
	"knowledge-hub/internal/comment/repository"
	"knowledge-hub/internal/common/crypto"
	commonerrors "knowledge-hub/internal/common/errors"
	"knowledge-hub/internal/common/logger"
	"knowledge-hub/internal/observability/metrics"
	workspacerepo "knowledge-hub/internal/workspace/repository"
)

// EventTypeCommentCreated is the frame type pushed to room members after a
// comment commits.
const EventTypeCommentCreated = "comment.created"

// CommentCreatedPayload is the wire payload of a comment.created event.
type CommentCreatedPayload struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	AuthorID    string    `json:"author_id"`
	AuthorName  string    `json:"author_name"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// Broadcaster fans a committed event out to the room. Implementations must
// not block the caller on slow recipients and must never return delivery
// errors: delivery is best-effort by contract.
type Broadcaster interface {
	Publish(roomID, eventType string, payload any)
}

type CommentService struct {
	comments    repository.Repository
	workspaces  workspacerepo.Repository
	broadcaster Broadcaster
	idGenerator crypto.IDGenerator
	log         *logger.Logger

	// Per-workspace sequencing: the persist-then-broadcast pair runs under
	// the workspace's mutex so broadcast order equals commit order.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewCommentService(
	comments repository.Repository,
	workspaces workspacerepo.Repository,
	broadcaster Broadcaster,
	idGenerator crypto.IDGenerator,
	log *logger.Logger,
) *CommentService {
	return &CommentService{
		comments:    comments,
		workspaces:  workspaces,
		broadcaster: broadcaster,
		idGenerator: idGenerator,
		log:         log,
		locks:       make(map[string]*sync.Mutex),
	}
}

// Create validates, persists and then broadcasts a comment. The broadcast
// happens only after the store commit succeeds; a persistence failure aborts
// the call with nothing published.
func (s *CommentService) Create(ctx context.Context, workspaceID, authorID, content string) (domain.Comment, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return domain.Comment{}, commonerrors.ErrEmptyContent
	}

	// Membership is re-derived from the store on every call; token claims
	// only establish identity.
	isMember, err := s.workspaces.IsMember(ctx, workspaceID, authorID)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"workspace_id": workspaceID,
			"author_id":    authorID,
			"action":       "comment_membership_check_failed",
		}).Errorf("membership check failed: %v", err)
		return domain.Comment{}, commonerrors.ErrStoreUnavailable.WithCause(err)
	}
	if !isMember {
		s.log.WithFields(ctx, logger.Fields{
			"workspace_id": workspaceID,
			"author_id":    authorID,
			"action":       "comment_not_a_member",
		}).Warn("comment rejected: author is not a workspace member")
		return domain.Comment{}, commonerrors.ErrNotAMember
	}

	lock := s.workspaceLock(workspaceID)
	lock.Lock()
	defer lock.Unlock()

	created, err := s.comments.Create(ctx, domain.Comment{
		ID:          s.idGenerator.NewID(),
		WorkspaceID: workspaceID,
		AuthorID:    authorID,
		Content:     trimmed,
	})
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"workspace_id": workspaceID,
			"author_id":    authorID,
			"action":       "comment_persist_failed",
		}).Errorf("comment persist failed: %v", err)
		return domain.Comment{}, commonerrors.ErrStoreUnavailable.WithCause(err)
	}

	metrics.CommentsCreatedTotal.Inc()

	s.broadcaster.Publish(workspaceID, EventTypeCommentCreated, CommentCreatedPayload{
		ID:          created.ID,
		WorkspaceID: created.WorkspaceID,
		AuthorID:    created.AuthorID,
		AuthorName:  created.AuthorName,
		Content:     created.Content,
		CreatedAt:   created.CreatedAt,
	})

	s.log.WithFields(ctx, logger.Fields{
		"workspace_id": workspaceID,
		"author_id":    authorID,
		"comment_id":   created.ID,
		"action":       "comment_created",
	}).Info("comment created")

	return created, nil
}

func (s *CommentService) ListByWorkspace(ctx context.Context, workspaceID, userID string) ([]domain.Comment, error) {
	isMember, err := s.workspaces.IsMember(ctx, workspaceID, userID)
	if err != nil {
		return nil, commonerrors.ErrStoreUnavailable.WithCause(err)
	}
	if !isMember {
		return nil, commonerrors.ErrNotAMember
	}

	return s.comments.ListByWorkspace(ctx, workspaceID)
}

func (s *CommentService) workspaceLock(workspaceID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[workspaceID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[workspaceID] = lock
	}
	return lock
}
