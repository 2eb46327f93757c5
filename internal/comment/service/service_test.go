package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"knowledge-hub/internal/comment/domain"
	commonerrors "knowledge-hub/internal/common/errors"
	"knowledge-hub/internal/common/logger"
	workspacedomain "knowledge-hub/internal/workspace/domain"
)

type mockCommentRepo struct {
	createFunc          func(ctx context.Context, comment domain.Comment) (domain.Comment, error)
	listByWorkspaceFunc func(ctx context.Context, workspaceID string) ([]domain.Comment, error)
}

func (m *mockCommentRepo) Create(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, comment)
	}
	comment.CreatedAt = time.Now()
	return comment, nil
}

func (m *mockCommentRepo) ListByWorkspace(ctx context.Context, workspaceID string) ([]domain.Comment, error) {
	if m.listByWorkspaceFunc != nil {
		return m.listByWorkspaceFunc(ctx, workspaceID)
	}
	return nil, nil
}

type mockWorkspaceRepo struct {
	isMemberFunc func(ctx context.Context, workspaceID, userID string) (bool, error)
}

func (m *mockWorkspaceRepo) ListByMember(ctx context.Context, userID string) ([]workspacedomain.Workspace, error) {
	return nil, nil
}

func (m *mockWorkspaceRepo) IsMember(ctx context.Context, workspaceID, userID string) (bool, error) {
	if m.isMemberFunc != nil {
		return m.isMemberFunc(ctx, workspaceID, userID)
	}
	return true, nil
}

func (m *mockWorkspaceRepo) FindByID(ctx context.Context, id string) (workspacedomain.Workspace, error) {
	return workspacedomain.Workspace{}, nil
}

type publishedEvent struct {
	roomID    string
	eventType string
	payload   any
}

type mockBroadcaster struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (m *mockBroadcaster) Publish(roomID, eventType string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{roomID: roomID, eventType: eventType, payload: payload})
}

func (m *mockBroadcaster) published() []publishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishedEvent(nil), m.events...)
}

type stubIDGenerator struct{ id string }

func (g *stubIDGenerator) NewID() string { return g.id }

func setupCommentService(comments *mockCommentRepo, workspaces *mockWorkspaceRepo) (*CommentService, *mockBroadcaster) {
	broadcaster := &mockBroadcaster{}
	svc := NewCommentService(comments, workspaces, broadcaster, &stubIDGenerator{id: "comment-1"}, logger.Discard())
	return svc, broadcaster
}

func TestCommentService_Create_Success(t *testing.T) {
	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	comments := &mockCommentRepo{
		createFunc: func(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
			if comment.ID != "comment-1" {
				t.Errorf("expected generated id comment-1, got %s", comment.ID)
			}
			if comment.Content != "hello" {
				t.Errorf("expected trimmed content, got %q", comment.Content)
			}
			comment.AuthorName = "Alice"
			comment.CreatedAt = createdAt
			return comment, nil
		},
	}
	svc, broadcaster := setupCommentService(comments, &mockWorkspaceRepo{})

	comment, err := svc.Create(context.Background(), "ws-1", "user-1", "  hello  ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if comment.AuthorName != "Alice" {
		t.Errorf("expected author name from store, got %s", comment.AuthorName)
	}
	if !comment.CreatedAt.Equal(createdAt) {
		t.Errorf("expected store-assigned timestamp, got %v", comment.CreatedAt)
	}

	events := broadcaster.published()
	if len(events) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(events))
	}
	if events[0].roomID != "ws-1" {
		t.Errorf("expected broadcast to ws-1, got %s", events[0].roomID)
	}
	if events[0].eventType != EventTypeCommentCreated {
		t.Errorf("expected comment.created event, got %s", events[0].eventType)
	}

	payload, ok := events[0].payload.(CommentCreatedPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", events[0].payload)
	}
	if payload.ID != "comment-1" || payload.Content != "hello" || !payload.CreatedAt.Equal(createdAt) {
		t.Errorf("broadcast payload does not match committed comment: %+v", payload)
	}
}

func TestCommentService_Create_EmptyContent(t *testing.T) {
	svc, broadcaster := setupCommentService(&mockCommentRepo{}, &mockWorkspaceRepo{})

	_, err := svc.Create(context.Background(), "ws-1", "user-1", "   ")
	if !errors.Is(err, commonerrors.ErrEmptyContent) {
		t.Errorf("expected ErrEmptyContent, got %v", err)
	}
	if len(broadcaster.published()) != 0 {
		t.Error("expected no broadcast for rejected comment")
	}
}

func TestCommentService_Create_NotAMember(t *testing.T) {
	workspaces := &mockWorkspaceRepo{
		isMemberFunc: func(ctx context.Context, workspaceID, userID string) (bool, error) {
			return false, nil
		},
	}
	repoCalled := false
	comments := &mockCommentRepo{
		createFunc: func(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
			repoCalled = true
			return comment, nil
		},
	}
	svc, broadcaster := setupCommentService(comments, workspaces)

	_, err := svc.Create(context.Background(), "ws-1", "user-1", "hello")
	if !errors.Is(err, commonerrors.ErrNotAMember) {
		t.Errorf("expected ErrNotAMember, got %v", err)
	}
	if repoCalled {
		t.Error("expected no persist attempt for a non-member")
	}
	if len(broadcaster.published()) != 0 {
		t.Error("expected no broadcast for a non-member")
	}
}

func TestCommentService_Create_MembershipCheckFails(t *testing.T) {
	workspaces := &mockWorkspaceRepo{
		isMemberFunc: func(ctx context.Context, workspaceID, userID string) (bool, error) {
			return false, errors.New("connection refused")
		},
	}
	svc, broadcaster := setupCommentService(&mockCommentRepo{}, workspaces)

	_, err := svc.Create(context.Background(), "ws-1", "user-1", "hello")
	if !errors.Is(err, commonerrors.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
	if len(broadcaster.published()) != 0 {
		t.Error("expected no broadcast when membership cannot be derived")
	}
}

func TestCommentService_Create_PersistFailure_NoBroadcast(t *testing.T) {
	comments := &mockCommentRepo{
		createFunc: func(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
			return domain.Comment{}, errors.New("insert failed")
		},
	}
	svc, broadcaster := setupCommentService(comments, &mockWorkspaceRepo{})

	_, err := svc.Create(context.Background(), "ws-1", "user-1", "hello")
	if !errors.Is(err, commonerrors.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
	if len(broadcaster.published()) != 0 {
		t.Error("expected no broadcast after a failed commit")
	}
}

func TestCommentService_Create_BroadcastOrderMatchesCommitOrder(t *testing.T) {
	var mu sync.Mutex
	seq := 0
	comments := &mockCommentRepo{
		createFunc: func(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
			mu.Lock()
			seq++
			comment.CreatedAt = time.Date(2025, 6, 1, 12, 0, 0, seq, time.UTC)
			mu.Unlock()
			return comment, nil
		},
	}
	svc, broadcaster := setupCommentService(comments, &mockWorkspaceRepo{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Create(context.Background(), "ws-1", "user-1", "hello"); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		}()
	}
	wg.Wait()

	events := broadcaster.published()
	if len(events) != 10 {
		t.Fatalf("expected 10 broadcasts, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		prev := events[i-1].payload.(CommentCreatedPayload)
		curr := events[i].payload.(CommentCreatedPayload)
		if !prev.CreatedAt.Before(curr.CreatedAt) {
			t.Fatalf("broadcast order diverged from commit order at %d", i)
		}
	}
}

func TestCommentService_ListByWorkspace_NotAMember(t *testing.T) {
	workspaces := &mockWorkspaceRepo{
		isMemberFunc: func(ctx context.Context, workspaceID, userID string) (bool, error) {
			return false, nil
		},
	}
	svc, _ := setupCommentService(&mockCommentRepo{}, workspaces)

	_, err := svc.ListByWorkspace(context.Background(), "ws-1", "user-1")
	if !errors.Is(err, commonerrors.ErrNotAMember) {
		t.Errorf("expected ErrNotAMember, got %v", err)
	}
}
