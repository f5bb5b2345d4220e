// Package service 包含了应用的业务逻辑层。
package service

import (
	"errors"
	"time"

	"medi-chat-go/internal/model"
	"medi-chat-go/internal/repository"

	"gorm.io/gorm"
)

// ErrHistoryNotFound 表示历史记录不存在，或不属于当前用户。
var ErrHistoryNotFound = errors.New("history item not found")

// HistoryItemDTO 是历史记录的接口层表示。
type HistoryItemDTO struct {
	ID        uint            `json:"id"`
	Query     string          `json:"query"`
	Response  string          `json:"response"`
	CreatedAt model.LocalTime `json:"createdAt"`
}

// HistoryPage 是一页历史记录及其分页元信息。
type HistoryPage struct {
	Items       []HistoryItemDTO `json:"history"`
	Total       int64            `json:"total"`
	Pages       int              `json:"pages"`
	CurrentPage int              `json:"current_page"`
}

// HistoryService 定义了问答历史记录的业务操作接口。
type HistoryService interface {
	// GetHistory 分页返回用户的历史记录，days > 0 时只返回最近 days 天内的记录。
	GetHistory(userID uint, page, perPage, days int) (*HistoryPage, error)
	GetHistoryItem(historyID, userID uint) (*HistoryItemDTO, error)
	DeleteHistoryItem(historyID, userID uint) error
	// ClearHistory 批量删除用户的历史记录，days > 0 时只删除最近 days 天内的记录。
	// 返回被删除的记录数。
	ClearHistory(userID uint, days int) (int64, error)
}

type historyService struct {
	historyRepo repository.HistoryRepository
}

// NewHistoryService 创建一个新的 HistoryService 实例。
func NewHistoryService(historyRepo repository.HistoryRepository) HistoryService {
	return &historyService{historyRepo: historyRepo}
}

// sinceFromDays 将"最近 N 天"转换为时间下界，N <= 0 表示不过滤。
func sinceFromDays(days int) *time.Time {
	if days <= 0 {
		return nil
	}
	t := time.Now().UTC().AddDate(0, 0, -days)
	return &t
}

// GetHistory 分页检索用户的历史记录，按创建时间倒序。
func (s *historyService) GetHistory(userID uint, page, perPage, days int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	offset := (page - 1) * perPage

	items, total, err := s.historyRepo.FindWithPagination(userID, offset, perPage, sinceFromDays(days))
	if err != nil {
		return nil, err
	}

	dtos := make([]HistoryItemDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, HistoryItemDTO{
			ID:        item.ID,
			Query:     item.Query,
			Response:  item.Response,
			CreatedAt: model.LocalTime(item.CreatedAt),
		})
	}

	pages := int((total + int64(perPage) - 1) / int64(perPage))

	return &HistoryPage{
		Items:       dtos,
		Total:       total,
		Pages:       pages,
		CurrentPage: page,
	}, nil
}

// GetHistoryItem 返回用户拥有的一条历史记录。
func (s *historyService) GetHistoryItem(historyID, userID uint) (*HistoryItemDTO, error) {
	item, err := s.historyRepo.FindByIDAndUser(historyID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHistoryNotFound
		}
		return nil, err
	}
	return &HistoryItemDTO{
		ID:        item.ID,
		Query:     item.Query,
		Response:  item.Response,
		CreatedAt: model.LocalTime(item.CreatedAt),
	}, nil
}

// DeleteHistoryItem 删除用户拥有的一条历史记录。
func (s *historyService) DeleteHistoryItem(historyID, userID uint) error {
	affected, err := s.historyRepo.DeleteByIDAndUser(historyID, userID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrHistoryNotFound
	}
	return nil
}

// ClearHistory 批量删除用户的历史记录。
func (s *historyService) ClearHistory(userID uint, days int) (int64, error) {
	return s.historyRepo.DeleteByUser(userID, sinceFromDays(days))
}
