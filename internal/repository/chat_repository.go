// Package repository 提供了数据访问层的实现。
package repository

import (
	"time"

	"medi-chat-go/internal/model"

	"gorm.io/gorm"
)

// ChatRepository 定义了会话与消息的持久化操作接口。
type ChatRepository interface {
	CreateSession(session *model.ChatSession) error
	FindSessionByIDAndUser(sessionID, userID uint) (*model.ChatSession, error)
	FindSessionsByUser(userID uint) ([]model.ChatSession, error)
	// DeleteSession 在同一事务内删除会话及其全部消息。
	DeleteSession(session *model.ChatSession) error
	// FindMessagesBySession 按创建时间升序返回会话的全部消息。
	FindMessagesBySession(sessionID uint) ([]model.ChatMessage, error)
	CountMessagesBySession(sessionID uint) (int64, error)
	// SaveTurn 在单个事务内持久化一次完整的问答交互：
	// 先写用户消息再写助手消息，按需更新会话标题，刷新会话时间戳，
	// 并追加一条扁平化的历史记录。任一步骤失败则整体回滚。
	SaveTurn(session *model.ChatSession, question, answer string, setTitle bool, title string) error
}

// chatRepository 是 ChatRepository 接口的 GORM 实现。
type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建一个新的 ChatRepository 实例。
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// CreateSession 在数据库中创建一个新的会话记录。
func (r *chatRepository) CreateSession(session *model.ChatSession) error {
	return r.db.Create(session).Error
}

// FindSessionByIDAndUser 按 (会话ID, 用户ID) 联合查找会话。
// 联合条件保证用户无法通过 ID 访问他人的会话。
func (r *chatRepository) FindSessionByIDAndUser(sessionID, userID uint) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.db.Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindSessionsByUser 返回用户的全部会话，按最近更新时间倒序。
func (r *chatRepository) FindSessionsByUser(userID uint) ([]model.ChatSession, error) {
	var sessions []model.ChatSession
	err := r.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&sessions).Error
	return sessions, err
}

// DeleteSession 删除会话及其所属的全部消息。
// 级联删除在事务内显式执行，不依赖数据库外键行为。
func (r *chatRepository) DeleteSession(session *model.ChatSession) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", session.ID).Delete(&model.ChatMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(session).Error
	})
}

// FindMessagesBySession 按创建时间升序返回会话的全部消息。
// 同一时刻写入的消息以自增 ID 保证稳定次序。
func (r *chatRepository) FindMessagesBySession(sessionID uint) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	err := r.db.Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

// CountMessagesBySession 返回会话当前的消息总数。
func (r *chatRepository) CountMessagesBySession(sessionID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.ChatMessage{}).Where("session_id = ?", sessionID).Count(&count).Error
	return count, err
}

// SaveTurn 在单个事务内持久化一次问答交互的全部写入。
func (r *chatRepository) SaveTurn(session *model.ChatSession, question, answer string, setTitle bool, title string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		userMsg := &model.ChatMessage{
			SessionID: session.ID,
			Role:      model.RoleUser,
			Content:   question,
		}
		if err := tx.Create(userMsg).Error; err != nil {
			return err
		}

		assistantMsg := &model.ChatMessage{
			SessionID: session.ID,
			Role:      model.RoleAssistant,
			Content:   answer,
		}
		if err := tx.Create(assistantMsg).Error; err != nil {
			return err
		}

		// 更新标题（仅首轮交互）并刷新 updated_at
		if setTitle {
			session.Title = title
			if err := tx.Model(session).Update("title", title).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Model(session).Update("updated_at", time.Now()).Error; err != nil {
				return err
			}
		}

		history := &model.ChatHistory{
			UserID:   session.UserID,
			Query:    question,
			Response: answer,
		}
		return tx.Create(history).Error
	})
}
