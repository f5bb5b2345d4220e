// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"medi-chat-go/internal/service"
	"medi-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// 历史记录分页的默认值与上限。
const (
	defaultHistoryPage    = 1
	defaultHistoryPerPage = 10
	maxHistoryPerPage     = 50
)

// HistoryHandler 负责处理问答历史记录相关的 API 请求。
type HistoryHandler struct {
	historyService service.HistoryService
}

// NewHistoryHandler 创建一个新的 HistoryHandler 实例。
func NewHistoryHandler(historyService service.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

// queryInt 解析查询参数中的整数，解析失败时返回默认值。
func queryInt(c *gin.Context, name string, defaultValue int) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return defaultValue
	}
	return value
}

// GetHistory 分页返回当前用户的问答历史，按时间倒序。
// days 参数用于只保留最近 N 天的记录，per_page 超过上限时会被收紧。
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	user := currentUser(c)

	page := queryInt(c, "page", defaultHistoryPage)
	perPage := queryInt(c, "per_page", defaultHistoryPerPage)
	if perPage > maxHistoryPerPage {
		perPage = maxHistoryPerPage
	}
	days := queryInt(c, "days", 0)

	result, err := h.historyService.GetHistory(user.ID, page, perPage, days)
	if err != nil {
		log.Errorf("GetHistory: failed for user %d, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to retrieve history!"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetHistoryItem 返回单条历史记录。
func (h *HistoryHandler) GetHistoryItem(c *gin.Context) {
	user := currentUser(c)

	itemID, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "History item not found!"})
		return
	}

	item, err := h.historyService.GetHistoryItem(itemID, user.ID)
	if err != nil {
		if errors.Is(err, service.ErrHistoryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "History item not found!"})
			return
		}
		log.Errorf("GetHistoryItem: failed for user %d, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to retrieve history item!"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"history_item": item})
}

// DeleteHistoryItem 删除单条历史记录。
func (h *HistoryHandler) DeleteHistoryItem(c *gin.Context) {
	user := currentUser(c)

	itemID, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "History item not found!"})
		return
	}

	if err := h.historyService.DeleteHistoryItem(itemID, user.ID); err != nil {
		if errors.Is(err, service.ErrHistoryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "History item not found!"})
			return
		}
		log.Errorf("DeleteHistoryItem: failed for user %d, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete history item!"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "History item deleted successfully!"})
}

// ClearHistory 批量删除历史记录。
// 不带 days 参数时清空全部历史，带 days 时仅删除最近 N 天内的记录。
func (h *HistoryHandler) ClearHistory(c *gin.Context) {
	user := currentUser(c)

	days := queryInt(c, "days", 0)

	deleted, err := h.historyService.ClearHistory(user.ID, days)
	if err != nil {
		log.Errorf("ClearHistory: failed for user %d, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to clear history!"})
		return
	}

	log.Infof("User %d cleared %d history items", user.ID, deleted)
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%d history items deleted successfully!", deleted),
	})
}
