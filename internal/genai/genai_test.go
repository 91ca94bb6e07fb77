package genai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openai/openai-go"

	"github.com/EnigmaBots/EventPilot/internal/models"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp  openai.ChatCompletion
	err   error
	delay time.Duration
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return openai.ChatCompletion{}, ctx.Err()
		}
	}
	return m.resp, m.err
}

func newTestClient(chat chatService, timeout time.Duration) *Client {
	return newClientWithService(chat, Opts{Timeout: timeout})
}

func TestGenerate_Success(t *testing.T) {
	mockResp := openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "Get a jungle cake. Rent a venue."}},
		},
	}
	client := newTestClient(&mockChatService{resp: mockResp}, time.Second)

	out, err := client.Generate(context.Background(), models.PromptSpec{System: "sys", User: "usr"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Get a jungle cake. Rent a venue." {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestGenerate_TransportError(t *testing.T) {
	client := newTestClient(&mockChatService{err: errors.New("connection refused")}, time.Second)

	_, err := client.Generate(context.Background(), models.PromptSpec{User: "usr"})
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %T: %v", err, err)
	}
	if genErr.Kind != ErrorTransport {
		t.Errorf("expected transport kind, got %s", genErr.Kind)
	}
}

func TestGenerate_Timeout(t *testing.T) {
	client := newTestClient(&mockChatService{delay: 200 * time.Millisecond}, 20*time.Millisecond)

	_, err := client.Generate(context.Background(), models.PromptSpec{User: "usr"})
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %T: %v", err, err)
	}
	if genErr.Kind != ErrorTimeout {
		t.Errorf("expected timeout kind, got %s", genErr.Kind)
	}
}

func TestGenerate_NoChoices(t *testing.T) {
	client := newTestClient(&mockChatService{resp: openai.ChatCompletion{}}, time.Second)

	_, err := client.Generate(context.Background(), models.PromptSpec{User: "usr"})
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %T: %v", err, err)
	}
	if genErr.Kind != ErrorPayload {
		t.Errorf("expected payload kind, got %s", genErr.Kind)
	}
	if !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("expected ErrNoChoicesReturned in chain, got %v", err)
	}
}

func TestGenerate_EmptyContent(t *testing.T) {
	mockResp := openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: ""}}},
	}
	client := newTestClient(&mockChatService{resp: mockResp}, time.Second)

	_, err := client.Generate(context.Background(), models.PromptSpec{User: "usr"})
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %T: %v", err, err)
	}
	if genErr.Kind != ErrorPayload {
		t.Errorf("expected payload kind, got %s", genErr.Kind)
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	if _, err := NewClient(); err == nil {
		t.Error("expected error when API key not provided, got nil")
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"), WithModel("mistralai/mixtral-8x7b-instruct"), WithBaseURL("https://openrouter.ai/api/v1"))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli == nil {
		t.Fatal("expected client instance, got nil")
	}
	if cli.model != "mistralai/mixtral-8x7b-instruct" {
		t.Errorf("unexpected model: %q", cli.model)
	}
	if cli.timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", cli.timeout)
	}
}
