package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"prospectus-backend/internal/documents"
	"prospectus-backend/internal/llm"
)

type fakeChat struct {
	fragments []string
	err       error
	started   chan struct{}
	proceed   chan struct{}
}

func (f *fakeChat) SendStream(ctx context.Context, message string, emit func(chunk string) error) error {
	if f.started != nil {
		close(f.started)
		<-f.proceed
	}
	for _, fr := range f.fragments {
		if err := emit(fr); err != nil {
			return err
		}
	}
	return f.err
}

type fakeChatGateway struct {
	chat    llm.Chat
	system  string
	history []llm.Turn
}

func (f *fakeChatGateway) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeChatGateway) GenerateStream(ctx context.Context, prompt string, opts llm.Options, emit func(string) error) error {
	return errors.New("not implemented")
}

func (f *fakeChatGateway) StartChat(ctx context.Context, systemInstruction string, history []llm.Turn) (llm.Chat, error) {
	f.system = systemInstruction
	f.history = history
	return f.chat, nil
}

type fakeDocs struct{ text string }

func (f *fakeDocs) Text(ctx context.Context, clientID, documentID string) (documents.Document, string, error) {
	return documents.Document{ID: "doc-1", ClientID: clientID}, f.text, nil
}

func newTestService(chat llm.Chat) (*Service, *fakeChatGateway) {
	gw := &fakeChatGateway{chat: chat}
	return &Service{
		Docs:    &fakeDocs{text: "S-1 filing text"},
		Gateway: gw,
		Store:   NewStore(),
	}, gw
}

func TestCreateSeedsHistoryAndGreeting(t *testing.T) {
	svc, gw := newTestService(&fakeChat{})

	session, err := svc.Create(context.Background(), "client-1", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if len(gw.history) != 2 {
		t.Fatalf("expected 2 seed turns, got %d", len(gw.history))
	}
	if gw.history[0].Role != llm.RoleUser || !strings.Contains(gw.history[0].Text, "S-1 filing text") {
		t.Fatalf("seed user turn missing document text: %+v", gw.history[0])
	}
	if gw.history[1].Role != llm.RoleModel || !strings.Contains(gw.history[1].Text, "I have reviewed the S-1 filing") {
		t.Fatalf("unexpected seed acknowledgment: %+v", gw.history[1])
	}
	if !strings.Contains(gw.system, "CRITICAL CITATION RULES") {
		t.Fatal("system instruction not passed through")
	}
	if strings.Contains(gw.system, "~") {
		t.Fatal("system instruction still contains placeholder characters")
	}

	if len(session.Messages) != 1 || session.Messages[0].Text != greeting {
		t.Fatalf("expected greeting message, got %+v", session.Messages)
	}
}

func TestSendStreamsCumulativeFragments(t *testing.T) {
	svc, _ := newTestService(&fakeChat{fragments: []string{"Hel", "lo", " world"}})

	session, err := svc.Create(context.Background(), "client-1", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var cumulative []string
	var current strings.Builder
	reply, err := svc.Send(context.Background(), "client-1", session.ID, "hi", func(chunk string) error {
		current.WriteString(chunk)
		cumulative = append(cumulative, current.String())
		return nil
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	wantStates := []string{"Hel", "Hello", "Hello world"}
	if len(cumulative) != len(wantStates) {
		t.Fatalf("expected %d states, got %d", len(wantStates), len(cumulative))
	}
	for i, want := range wantStates {
		if cumulative[i] != want {
			t.Fatalf("state %d = %q, want %q", i, cumulative[i], want)
		}
	}
	if reply.Text != "Hello world" {
		t.Fatalf("reply text = %q, want %q", reply.Text, "Hello world")
	}

	got, err := svc.Get("client-1", session.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// greeting, user turn, model reply
	if len(got.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got.Messages))
	}
	if got.Messages[1].Role != RoleUser || got.Messages[2].Role != RoleModel {
		t.Fatalf("unexpected transcript roles: %+v", got.Messages)
	}
}

func TestSendNormalizesCitations(t *testing.T) {
	svc, _ := newTestService(&fakeChat{fragments: []string{
		"See revenue [1] and margin [^2, ^3].\n\n### Citations\n",
		"[^1]: \"rev quote\"\n[^2]: \"margin quote\"\n[^3]: \"margin2 quote\"\n",
	}})

	session, err := svc.Create(context.Background(), "client-1", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	reply, err := svc.Send(context.Background(), "client-1", session.ID, "revenue?", func(string) error { return nil })
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Text != "See revenue [^1] and margin [^2] [^3]." {
		t.Fatalf("unexpected normalized body: %q", reply.Text)
	}
	if reply.Citations == nil || reply.Citations.Len() != 3 {
		t.Fatalf("expected 3 citations, got %+v", reply.Citations)
	}
	if v, _ := reply.Citations.Get("1"); v != "rev quote" {
		t.Fatalf("citation 1 = %q", v)
	}
}

func TestSendStreamFailureDropsModelTurn(t *testing.T) {
	svc, _ := newTestService(&fakeChat{
		fragments: []string{"partial "},
		err:       &llm.GatewayError{Op: "chat_send", Err: errors.New("connection reset")},
	})

	session, err := svc.Create(context.Background(), "client-1", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Send(context.Background(), "client-1", session.ID, "hi", func(string) error { return nil }); err == nil {
		t.Fatal("expected stream error")
	}

	got, err := svc.Get("client-1", session.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	last := got.Messages[len(got.Messages)-1]
	if last.Role != RoleUser {
		t.Fatalf("expected no partial model turn, transcript ends with %s", last.Role)
	}

	// The session recovers for the next exchange.
	if _, err := svc.Store.acquire("client-1", session.ID); err != nil {
		t.Fatalf("session still busy after failure: %v", err)
	}
}

func TestSendBusyGuard(t *testing.T) {
	blocking := &fakeChat{
		fragments: []string{"x"},
		started:   make(chan struct{}),
		proceed:   make(chan struct{}),
	}
	svc, _ := newTestService(blocking)

	session, err := svc.Create(context.Background(), "client-1", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Send(context.Background(), "client-1", session.ID, "first", func(string) error { return nil })
		done <- err
	}()

	<-blocking.started
	if _, err := svc.Send(context.Background(), "client-1", session.ID, "second", func(string) error { return nil }); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(blocking.proceed)

	if err := <-done; err != nil {
		t.Fatalf("first send failed: %v", err)
	}
}

func TestPurgeByClientDropsSessions(t *testing.T) {
	svc, _ := newTestService(&fakeChat{})

	session, err := svc.Create(context.Background(), "client-1", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	svc.Store.PurgeByClient("client-1")
	if _, err := svc.Get("client-1", session.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after purge, got %v", err)
	}
}
