package chatclient

import (
	"sync"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models/dto"
	"github.com/google/uuid"
)

// ChatList is the principal's chats, most recently active first
type ChatList struct {
	mu    sync.RWMutex
	chats []dto.ChatResponse
}

// NewChatList creates an empty list
func NewChatList() *ChatList {
	return &ChatList{}
}

// Set replaces the list with a fetched one
func (l *ChatList) Set(chats []dto.ChatResponse) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.chats = append([]dto.ChatResponse(nil), chats...)
}

// Add puts a new chat on top unless it is already listed
func (l *ChatList) Add(chat dto.ChatResponse) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.chats {
		if c.ID == chat.ID {
			return
		}
	}
	l.chats = append([]dto.ChatResponse{chat}, l.chats...)
}

// ApplyMessage records msg as the chat's last message and moves the chat to the top
func (l *ChatList) ApplyMessage(msg dto.MessageResponse) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, c := range l.chats {
		if c.ID != msg.ChatID {
			continue
		}
		last := msg
		c.LastMessage = &last
		c.LastMessageAt = msg.CreatedAt
		copy(l.chats[1:i+1], l.chats[:i])
		l.chats[0] = c
		return true
	}
	return false
}

// Get returns one chat
func (l *ChatList) Get(chatID uuid.UUID) (dto.ChatResponse, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, c := range l.chats {
		if c.ID == chatID {
			return c, true
		}
	}
	return dto.ChatResponse{}, false
}

// Chats returns a copy of the list
func (l *ChatList) Chats() []dto.ChatResponse {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]dto.ChatResponse(nil), l.chats...)
}
