// Package repository 提供了数据访问层的实现。
package repository

import (
	"time"

	"medi-chat-go/internal/model"

	"gorm.io/gorm"
)

// HistoryRepository 定义了扁平化问答历史记录的持久化操作接口。
type HistoryRepository interface {
	// FindWithPagination 分页检索用户的历史记录，按创建时间倒序。
	// since 不为 nil 时只返回该时间之后的记录。
	// 它返回记录列表、总记录数和可能发生的错误。
	FindWithPagination(userID uint, offset, limit int, since *time.Time) ([]model.ChatHistory, int64, error)
	FindByIDAndUser(historyID, userID uint) (*model.ChatHistory, error)
	DeleteByIDAndUser(historyID, userID uint) (int64, error)
	// DeleteByUser 删除用户的历史记录，since 不为 nil 时只删除该时间之后的记录。
	// 返回被删除的记录数。
	DeleteByUser(userID uint, since *time.Time) (int64, error)
}

// historyRepository 是 HistoryRepository 接口的 GORM 实现。
type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository 创建一个新的 HistoryRepository 实例。
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

// FindWithPagination 从数据库中分页检索历史记录。
func (r *historyRepository) FindWithPagination(userID uint, offset, limit int, since *time.Time) ([]model.ChatHistory, int64, error) {
	var items []model.ChatHistory
	var total int64

	db := r.db.Model(&model.ChatHistory{}).Where("user_id = ?", userID)
	if since != nil {
		db = db.Where("created_at >= ?", *since)
	}

	// 首先计算总记录数
	err := db.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	// 然后根据偏移量和限制获取当前页的数据
	err = db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// FindByIDAndUser 按 (记录ID, 用户ID) 联合查找一条历史记录。
func (r *historyRepository) FindByIDAndUser(historyID, userID uint) (*model.ChatHistory, error) {
	var item model.ChatHistory
	err := r.db.Where("id = ? AND user_id = ?", historyID, userID).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteByIDAndUser 删除用户拥有的一条历史记录，返回受影响的行数。
func (r *historyRepository) DeleteByIDAndUser(historyID, userID uint) (int64, error) {
	result := r.db.Where("id = ? AND user_id = ?", historyID, userID).Delete(&model.ChatHistory{})
	return result.RowsAffected, result.Error
}

// DeleteByUser 批量删除用户的历史记录。
func (r *historyRepository) DeleteByUser(userID uint, since *time.Time) (int64, error) {
	db := r.db.Where("user_id = ?", userID)
	if since != nil {
		db = db.Where("created_at >= ?", *since)
	}
	result := db.Delete(&model.ChatHistory{})
	return result.RowsAffected, result.Error
}
