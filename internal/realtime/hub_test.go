package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"knowledge-hub/internal/common/logger"
	workspacedomain "knowledge-hub/internal/workspace/domain"
)

type mockWorkspaceRepo struct {
	listByMemberFunc func(ctx context.Context, userID string) ([]workspacedomain.Workspace, error)
	isMemberFunc     func(ctx context.Context, workspaceID, userID string) (bool, error)
	findByIDFunc     func(ctx context.Context, id string) (workspacedomain.Workspace, error)
}

func (m *mockWorkspaceRepo) ListByMember(ctx context.Context, userID string) ([]workspacedomain.Workspace, error) {
	if m.listByMemberFunc != nil {
		return m.listByMemberFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockWorkspaceRepo) IsMember(ctx context.Context, workspaceID, userID string) (bool, error) {
	if m.isMemberFunc != nil {
		return m.isMemberFunc(ctx, workspaceID, userID)
	}
	return false, nil
}

func (m *mockWorkspaceRepo) FindByID(ctx context.Context, id string) (workspacedomain.Workspace, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return workspacedomain.Workspace{}, nil
}

func receiveFrame(t *testing.T, session *Session) Frame {
	t.Helper()
	select {
	case data := <-session.send:
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("failed to unmarshal frame: %v", err)
		}
		return frame
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame{}
	}
}

func joinFrame(t *testing.T, workspaceID string) Frame {
	t.Helper()
	payload, err := json.Marshal(RoomPayload{WorkspaceID: workspaceID})
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	return Frame{Type: TypeJoin, Payload: payload}
}

func TestHub_HandleFrame_JoinSuccess(t *testing.T) {
	registry := NewRegistry()
	workspaces := &mockWorkspaceRepo{
		isMemberFunc: func(ctx context.Context, workspaceID, userID string) (bool, error) {
			if workspaceID != "ws-1" || userID != "user-s1" {
				t.Errorf("unexpected membership check: workspace=%s user=%s", workspaceID, userID)
			}
			return true, nil
		},
	}
	hub := NewHub(registry, workspaces, logger.Discard())
	session := newStubSession("s1")

	hub.HandleFrame(session, joinFrame(t, "ws-1"))

	if got := len(registry.MembersOf("ws-1")); got != 1 {
		t.Fatalf("expected session in room, got %d members", got)
	}

	frame := receiveFrame(t, session)
	if frame.Type != TypeJoined {
		t.Errorf("expected joined frame, got %s", frame.Type)
	}

	var ack RoomPayload
	if err := json.Unmarshal(frame.Payload, &ack); err != nil {
		t.Fatalf("failed to unmarshal ack: %v", err)
	}
	if ack.WorkspaceID != "ws-1" {
		t.Errorf("expected ack for ws-1, got %s", ack.WorkspaceID)
	}
}

func TestHub_HandleFrame_JoinDenied(t *testing.T) {
	registry := NewRegistry()
	workspaces := &mockWorkspaceRepo{
		isMemberFunc: func(ctx context.Context, workspaceID, userID string) (bool, error) {
			return false, nil
		},
	}
	hub := NewHub(registry, workspaces, logger.Discard())
	session := newStubSession("s1")

	hub.HandleFrame(session, joinFrame(t, "ws-1"))

	if got := len(registry.MembersOf("ws-1")); got != 0 {
		t.Fatalf("expected session kept out of room, got %d members", got)
	}

	frame := receiveFrame(t, session)
	if frame.Type != TypeError {
		t.Fatalf("expected error frame, got %s", frame.Type)
	}

	var errPayload ErrorPayload
	if err := json.Unmarshal(frame.Payload, &errPayload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	if errPayload.Code != "NOT_A_MEMBER" {
		t.Errorf("expected NOT_A_MEMBER, got %s", errPayload.Code)
	}
}

func TestHub_HandleFrame_JoinStoreError(t *testing.T) {
	registry := NewRegistry()
	workspaces := &mockWorkspaceRepo{
		isMemberFunc: func(ctx context.Context, workspaceID, userID string) (bool, error) {
			return false, errors.New("connection refused")
		},
	}
	hub := NewHub(registry, workspaces, logger.Discard())
	session := newStubSession("s1")

	hub.HandleFrame(session, joinFrame(t, "ws-1"))

	if got := len(registry.MembersOf("ws-1")); got != 0 {
		t.Fatalf("expected session kept out of room, got %d members", got)
	}

	frame := receiveFrame(t, session)
	if frame.Type != TypeError {
		t.Fatalf("expected error frame, got %s", frame.Type)
	}

	var errPayload ErrorPayload
	if err := json.Unmarshal(frame.Payload, &errPayload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	if errPayload.Code != "STORE_UNAVAILABLE" {
		t.Errorf("expected STORE_UNAVAILABLE, got %s", errPayload.Code)
	}
}

func TestHub_HandleFrame_JoinMissingWorkspace(t *testing.T) {
	registry := NewRegistry()
	hub := NewHub(registry, &mockWorkspaceRepo{}, logger.Discard())
	session := newStubSession("s1")

	hub.HandleFrame(session, Frame{Type: TypeJoin, Payload: json.RawMessage(`{}`)})

	frame := receiveFrame(t, session)
	if frame.Type != TypeError {
		t.Fatalf("expected error frame, got %s", frame.Type)
	}
}

func TestHub_HandleFrame_Leave(t *testing.T) {
	registry := NewRegistry()
	workspaces := &mockWorkspaceRepo{
		isMemberFunc: func(ctx context.Context, workspaceID, userID string) (bool, error) {
			return true, nil
		},
	}
	hub := NewHub(registry, workspaces, logger.Discard())
	session := newStubSession("s1")

	hub.HandleFrame(session, joinFrame(t, "ws-1"))
	receiveFrame(t, session)

	payload, _ := json.Marshal(RoomPayload{WorkspaceID: "ws-1"})
	hub.HandleFrame(session, Frame{Type: TypeLeave, Payload: payload})

	if got := len(registry.MembersOf("ws-1")); got != 0 {
		t.Fatalf("expected session out of room, got %d members", got)
	}

	frame := receiveFrame(t, session)
	if frame.Type != TypeLeft {
		t.Errorf("expected left frame, got %s", frame.Type)
	}
}

func TestHub_HandleFrame_UnsupportedType(t *testing.T) {
	hub := NewHub(NewRegistry(), &mockWorkspaceRepo{}, logger.Discard())
	session := newStubSession("s1")

	hub.HandleFrame(session, Frame{Type: FrameType("bogus")})

	frame := receiveFrame(t, session)
	if frame.Type != TypeError {
		t.Errorf("expected error frame, got %s", frame.Type)
	}
}

func TestHub_Unregister_CleansRegistry(t *testing.T) {
	registry := NewRegistry()
	workspaces := &mockWorkspaceRepo{
		isMemberFunc: func(ctx context.Context, workspaceID, userID string) (bool, error) {
			return true, nil
		},
	}
	hub := NewHub(registry, workspaces, logger.Discard())
	session := newStubSession("s1")

	hub.sessions.Store(session.id, session)
	hub.sessionCount.Add(1)
	hub.HandleFrame(session, joinFrame(t, "ws-1"))
	receiveFrame(t, session)

	hub.handleUnregister(session)

	if got := len(registry.MembersOf("ws-1")); got != 0 {
		t.Errorf("expected registry cleaned on unregister, got %d members", got)
	}
	if _, ok := hub.sessions.Load(session.id); ok {
		t.Error("expected session removed from hub")
	}
	if err := session.enqueue([]byte("x")); err == nil {
		t.Error("expected enqueue to fail after unregister")
	}

	// Unregistering twice is a no-op.
	hub.handleUnregister(session)
}
