package service

import (
	"testing"
	"time"

	"medi-chat-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeHistoryRepo 是 HistoryRepository 的内存实现。
type fakeHistoryRepo struct {
	items []model.ChatHistory

	lastOffset int
	lastLimit  int
	lastSince  *time.Time
}

func (r *fakeHistoryRepo) FindWithPagination(userID uint, offset, limit int, since *time.Time) ([]model.ChatHistory, int64, error) {
	r.lastOffset = offset
	r.lastLimit = limit
	r.lastSince = since

	var owned []model.ChatHistory
	for _, item := range r.items {
		if item.UserID == userID {
			owned = append(owned, item)
		}
	}
	total := int64(len(owned))
	if offset >= len(owned) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(owned) {
		end = len(owned)
	}
	return owned[offset:end], total, nil
}

func (r *fakeHistoryRepo) FindByIDAndUser(historyID, userID uint) (*model.ChatHistory, error) {
	for i := range r.items {
		if r.items[i].ID == historyID && r.items[i].UserID == userID {
			return &r.items[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeHistoryRepo) DeleteByIDAndUser(historyID, userID uint) (int64, error) {
	for i := range r.items {
		if r.items[i].ID == historyID && r.items[i].UserID == userID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (r *fakeHistoryRepo) DeleteByUser(userID uint, since *time.Time) (int64, error) {
	r.lastSince = since
	var kept []model.ChatHistory
	var deleted int64
	for _, item := range r.items {
		if item.UserID == userID {
			deleted++
			continue
		}
		kept = append(kept, item)
	}
	r.items = kept
	return deleted, nil
}

func seedHistory(n int, userID uint) []model.ChatHistory {
	items := make([]model.ChatHistory, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, model.ChatHistory{ID: uint(i), UserID: userID, Query: "q", Response: "a"})
	}
	return items
}

func TestGetHistory_Pagination(t *testing.T) {
	repo := &fakeHistoryRepo{items: seedHistory(25, 1)}
	svc := NewHistoryService(repo)

	page, err := svc.GetHistory(1, 2, 10, 0)
	require.NoError(t, err)

	assert.Len(t, page.Items, 10)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, 3, page.Pages)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 10, repo.lastOffset)
}

func TestGetHistory_GuardsInvalidPaging(t *testing.T) {
	repo := &fakeHistoryRepo{items: seedHistory(5, 1)}
	svc := NewHistoryService(repo)

	page, err := svc.GetHistory(1, 0, -3, 0)
	require.NoError(t, err)

	// 非法分页参数回退到默认值
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 10, repo.lastLimit)
	assert.Equal(t, 0, repo.lastOffset)
}

func TestGetHistory_DaysFilter(t *testing.T) {
	repo := &fakeHistoryRepo{items: seedHistory(3, 1)}
	svc := NewHistoryService(repo)

	_, err := svc.GetHistory(1, 1, 10, 7)
	require.NoError(t, err)
	require.NotNil(t, repo.lastSince)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, -7), *repo.lastSince, time.Minute)

	_, err = svc.GetHistory(1, 1, 10, 0)
	require.NoError(t, err)
	assert.Nil(t, repo.lastSince)
}

func TestDeleteHistoryItem_NotFound(t *testing.T) {
	repo := &fakeHistoryRepo{items: seedHistory(1, 1)}
	svc := NewHistoryService(repo)

	require.NoError(t, svc.DeleteHistoryItem(1, 1))
	assert.ErrorIs(t, svc.DeleteHistoryItem(1, 1), ErrHistoryNotFound)
	// 其他用户的记录对当前用户不可见
	assert.ErrorIs(t, svc.DeleteHistoryItem(1, 2), ErrHistoryNotFound)
}

func TestGetHistoryItem_NotFound(t *testing.T) {
	svc := NewHistoryService(&fakeHistoryRepo{})
	_, err := svc.GetHistoryItem(42, 1)
	assert.ErrorIs(t, err, ErrHistoryNotFound)
}

func TestClearHistory(t *testing.T) {
	repo := &fakeHistoryRepo{items: seedHistory(4, 1)}
	svc := NewHistoryService(repo)

	deleted, err := svc.ClearHistory(1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
	assert.Empty(t, repo.items)
}
