package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harshchoudhary100/my-chat-box/internal/store"
)

// ChatService owns sessions and their message logs and runs the chat
// pipeline: replay ordered history into the completer, then persist the
// human/assistant turn pair.
type ChatService struct {
	dbStore    *store.SQLiteStore
	completer  Completer
	llmTimeout time.Duration
}

func NewChatService(db *store.SQLiteStore, completer Completer, llmTimeout time.Duration) *ChatService {
	return &ChatService{
		dbStore:    db,
		completer:  completer,
		llmTimeout: llmTimeout,
	}
}

func (s *ChatService) CreateSession(userID string) (*store.Session, error) {
	session, err := s.dbStore.CreateSession(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

func (s *ChatService) ListSessions(userID string) ([]store.Session, error) {
	return s.dbStore.GetSessionsByUserID(userID)
}

func (s *ChatService) RenameSession(userID, sessionID, title string) error {
	return s.dbStore.RenameSession(userID, sessionID, title)
}

// DeleteSession removes the session's messages and then the session row.
// The two deletions are not atomic with each other but both are attempted;
// either failing surfaces as ErrDeleteFailed.
func (s *ChatService) DeleteSession(userID, sessionID string) error {
	msgErr := s.dbStore.DeleteMessagesBySession(userID, sessionID)
	sessErr := s.dbStore.DeleteSession(userID, sessionID)
	if msgErr != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, msgErr)
	}
	if sessErr != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, sessErr)
	}
	return nil
}

func (s *ChatService) History(userID, sessionID string) ([]store.Message, error) {
	return s.dbStore.GetMessagesBySession(userID, sessionID)
}

// Chat runs one exchange. A missing or foreign session id simply yields an
// empty history; completion failure short-circuits before anything is
// written. Once the completion succeeded the reply is returned even if
// persisting the turns fails, the assistant turn is never written without
// its prompt.
func (s *ChatService) Chat(ctx context.Context, userID, sessionID, userText string) (string, error) {
	stored, err := s.dbStore.GetMessagesBySession(userID, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to load history: %w", err)
	}

	history := make([]Turn, 0, len(stored))
	for _, msg := range stored {
		history = append(history, Turn{Role: msg.Role, Content: msg.Content})
	}

	if s.llmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.llmTimeout)
		defer cancel()
	}

	reply, err := s.completer.Complete(ctx, history, userText)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletion, err)
	}

	userMsg := store.Message{
		UserID:    userID,
		SessionID: sessionID,
		Role:      store.RoleHuman,
		Content:   userText,
	}
	if err := s.dbStore.CreateMessage(&userMsg); err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("failed to store user turn, skipping assistant turn")
		return reply, nil
	}

	assistantMsg := store.Message{
		UserID:    userID,
		SessionID: sessionID,
		Role:      store.RoleAssistant,
		Content:   reply,
	}
	if err := s.dbStore.CreateMessage(&assistantMsg); err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("failed to store assistant turn")
	}

	return reply, nil
}
