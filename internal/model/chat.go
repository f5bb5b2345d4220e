// Package model 包含了应用的数据模型定义。
package model

import "time"

// 消息角色常量。会话中的每条消息只属于这两种角色之一。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession 代表一个用户拥有的对话会话。
// 会话在用户发送第一条消息时惰性创建，标题取自首条用户消息。
type ChatSession struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	UserID    uint          `gorm:"index;not null" json:"userId"`
	Title     string        `gorm:"type:varchar(100);default:'New Conversation'" json:"title"`
	CreatedAt time.Time     `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time     `gorm:"autoUpdateTime" json:"updatedAt"`
	Messages  []ChatMessage `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

// ChatMessage 代表会话内的一条消息。消息写入后不可变，
// 按创建时间排序的消息序列是对话上下文的唯一来源。
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"index;not null" json:"sessionId"`
	Role      string    `gorm:"type:varchar(20);not null" json:"role"` // "user" 或 "assistant"
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

// ChatHistory 代表一次单独的问答交互的扁平化审计记录，独立于会话粒度。
type ChatHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"userId"`
	Query     string    `gorm:"type:text;not null" json:"query"`
	Response  string    `gorm:"type:text;not null" json:"response"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
}

func (ChatHistory) TableName() string {
	return "chat_histories"
}
