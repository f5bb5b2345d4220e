// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"medi-chat-go/internal/config"
	"medi-chat-go/internal/model"
	"medi-chat-go/internal/repository"
	"medi-chat-go/pkg/cache"
	"medi-chat-go/pkg/kafka"
	"medi-chat-go/pkg/llm"
	"medi-chat-go/pkg/log"

	"gorm.io/gorm"
)

// systemPrompt 是发给补全服务的固定系统指令。
const systemPrompt = `You are a medical AI assistant designed to provide general health information and guidance.
You can:
- Analyze symptoms and suggest possible causes
- Recommend when to see a doctor
- Suggest appropriate medical specialists
- Provide general health advice
- Explain medical terms and conditions

Important limitations:
- You are NOT a replacement for professional medical advice
- You CANNOT provide a diagnosis
- You should ALWAYS recommend consulting a healthcare professional for specific concerns
- You should NEVER prescribe medications or treatments
- You should acknowledge your limitations as an AI
- You should focus on providing factual, evidence-based information

For any serious or emergency symptoms, ALWAYS advise seeking immediate medical attention.`

const (
	// cacheKeyPrefix 是响应缓存键的命名空间前缀。
	cacheKeyPrefix = "chat:"
	// contextWindowSize 限定发往补全服务的历史消息条数上限。
	contextWindowSize = 10
	// sessionTitleMaxLen 是会话标题截断前保留的最大字符数。
	sessionTitleMaxLen = 30
	// emptyResponseApology 在补全服务返回空内容时替代空响应下发。
	emptyResponseApology = "I apologize, but I was unable to generate a response. Please try rephrasing your question."
	// fallbackDisclaimer 附加在兜底回复末尾，向用户明示这是降级回答。
	fallbackDisclaimer = "\n\n(Note: This is an automated fallback response as our AI service is temporarily unavailable. For specific medical concerns, please consult a healthcare professional.)"
)

// 兜底回复的子原因分类。
const (
	ErrorTypeQuotaExceeded = "quota_exceeded"
	ErrorTypeRateLimited   = "rate_limited"
)

var (
	// ErrSessionNotFound 表示会话不存在，或不属于当前用户。
	ErrSessionNotFound = errors.New("session not found")
	// ErrAPIKeyNotConfigured 表示补全服务的 API 凭证缺失或明显无效。
	ErrAPIKeyNotConfigured = errors.New("openai api key is not configured")
)

// SendResult 是一次问答交互的结果。
type SendResult struct {
	Response   string
	SessionID  uint
	IsFallback bool
	ErrorType  string
}

// ChatService 定义了聊天操作的接口。
type ChatService interface {
	// SendMessage 处理一次完整的问答交互：解析会话、查缓存、组装上下文、
	// 调用补全服务（失败时按策略兜底）、持久化消息并返回结果。
	SendMessage(ctx context.Context, user *model.User, message string, sessionID *uint) (*SendResult, error)
	GetSessions(userID uint) ([]model.ChatSession, error)
	GetSessionWithMessages(sessionID, userID uint) (*model.ChatSession, []model.ChatMessage, error)
	DeleteSession(sessionID, userID uint) error
}

type chatService struct {
	chatRepo  repository.ChatRepository
	llmClient llm.Client
	respCache cache.Cache // 可为 nil：Redis 不可用时禁用缓存，不影响主流程
	cacheTTL  time.Duration
}

// NewChatService 创建一个新的 ChatService 实例。
// respCache 是可选能力，传入 nil 表示不启用响应缓存。
func NewChatService(chatRepo repository.ChatRepository, llmClient llm.Client, respCache cache.Cache, cacheTTL time.Duration) ChatService {
	return &chatService{
		chatRepo:  chatRepo,
		llmClient: llmClient,
		respCache: respCache,
		cacheTTL:  cacheTTL,
	}
}

// CacheKey 根据消息原文计算内容寻址的缓存键。
// 键只由消息字节决定，与用户和会话无关：不同用户提出相同的问题
// 会共享同一缓存条目。
func CacheKey(message string) string {
	digest := md5.Sum([]byte(message))
	return cacheKeyPrefix + hex.EncodeToString(digest[:])
}

// SendMessage 协调一次问答交互的完整流程。
func (s *chatService) SendMessage(ctx context.Context, user *model.User, message string, sessionID *uint) (*SendResult, error) {
	// 1. 解析或创建会话。新会话立即落库，以便将 ID 返回给调用方。
	session, err := s.resolveSession(user.ID, sessionID)
	if err != nil {
		return nil, err
	}

	// 2. 查询缓存。缓存后端的任何错误都降级为未命中，绝不中断本轮交互。
	cacheKey := CacheKey(message)
	answer, hit := s.lookupCache(ctx, cacheKey)

	isFallback := false
	errorType := ""

	// 3. 未命中缓存时组装上下文并调用补全服务。
	if !hit {
		answer, isFallback, errorType, err = s.completeWithFallback(ctx, session.ID, message)
		if err != nil {
			return nil, err
		}

		// 只缓存真实的补全结果；兜底回复带有降级声明，不应被后续复用。
		if !isFallback {
			s.storeCache(ctx, cacheKey, answer)
		}
	}

	// 4. 持久化本轮交互。标题只在会话首轮交互时设置。
	priorCount, err := s.chatRepo.CountMessagesBySession(session.ID)
	if err != nil {
		return nil, err
	}
	setTitle := priorCount < 2
	if err := s.chatRepo.SaveTurn(session, message, answer, setTitle, deriveTitle(message)); err != nil {
		return nil, err
	}

	// 5. 上报审计事件（尽力而为）。
	kafka.ProduceTurnEvent(kafka.TurnEvent{
		UserID:    user.ID,
		SessionID: session.ID,
		Fallback:  isFallback,
		ErrorType: errorType,
	})

	return &SendResult{
		Response:   answer,
		SessionID:  session.ID,
		IsFallback: isFallback,
		ErrorType:  errorType,
	}, nil
}

// resolveSession 返回一个属于该用户的有效会话。
// 未提供 sessionID 时创建新会话；提供时按 (id, userID) 联合查找，
// 保证用户无法通过 ID 访问他人的会话。
func (s *chatService) resolveSession(userID uint, sessionID *uint) (*model.ChatSession, error) {
	if sessionID == nil {
		session := &model.ChatSession{UserID: userID}
		if err := s.chatRepo.CreateSession(session); err != nil {
			return nil, err
		}
		return session, nil
	}

	session, err := s.chatRepo.FindSessionByIDAndUser(*sessionID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// lookupCache 尝试读取缓存的助手回复。第二个返回值表示是否命中。
func (s *chatService) lookupCache(ctx context.Context, key string) (string, bool) {
	if s.respCache == nil {
		return "", false
	}
	value, err := s.respCache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warnf("Cache retrieval error: %v", err)
		}
		return "", false
	}
	log.Infof("Using cached response for: %s", key)
	return value, true
}

// storeCache 将助手回复写入缓存，失败只记录日志。
func (s *chatService) storeCache(ctx context.Context, key, answer string) {
	if s.respCache == nil {
		return
	}
	if err := s.respCache.Set(ctx, key, answer, s.cacheTTL); err != nil {
		log.Warnf("Cache storage error: %v", err)
		return
	}
	log.Infof("Response cached successfully: %s", key)
}

// completeWithFallback 调用补全服务并执行降级策略。
// 返回值依次为：回复文本、是否为兜底回复、兜底子原因。
func (s *chatService) completeWithFallback(ctx context.Context, sessionID uint, message string) (string, bool, string, error) {
	// 凭证必须存在且形式上有效，否则直接视为服务端配置错误，不发起调用。
	apiKey := config.Conf.OpenAI.APIKey
	if apiKey == "" || len(apiKey) < 10 {
		return "", false, "", ErrAPIKeyNotConfigured
	}

	messages, err := s.buildContextWindow(sessionID, message)
	if err != nil {
		return "", false, "", err
	}

	answer, err := s.llmClient.ChatCompletion(ctx, messages, nil)
	if err != nil {
		// 凭证被上游拒绝：本轮交互终止，不持久化任何内容。
		if errors.Is(err, llm.ErrAuthentication) {
			log.Errorf("LLM authentication error: %v", err)
			return "", false, "", err
		}

		// 限流/配额：不终止，改用本地兜底回复，照常持久化并返回成功。
		var rateErr *llm.RateLimitError
		if errors.As(err, &rateErr) {
			log.Warnf("LLM rate limited, serving fallback response: %v", rateErr)
			errorType := ErrorTypeRateLimited
			if strings.Contains(strings.ToLower(rateErr.Body), "quota") {
				errorType = ErrorTypeQuotaExceeded
			}
			return SelectFallbackResponse(message) + fallbackDisclaimer, true, errorType, nil
		}

		// 其他上游/传输错误：终止本轮交互。
		log.Errorf("LLM completion error: %v", err)
		return "", false, "", err
	}

	// 补全内容为空时替换为固定致歉语，不向用户下发空响应。
	if answer == "" {
		answer = emptyResponseApology
	}
	return answer, false, "", nil
}

// buildContextWindow 组装发往补全服务的有界上下文：
// 固定 system 指令 + 最近 contextWindowSize 条历史消息 + 本轮用户消息。
func (s *chatService) buildContextWindow(sessionID uint, message string) ([]llm.Message, error) {
	history, err := s.chatRepo.FindMessagesBySession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session messages: %w", err)
	}

	if len(history) > contextWindowSize {
		history = history[len(history)-contextWindowSize:]
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: model.RoleUser, Content: message})
	return messages, nil
}

// deriveTitle 从首条用户消息派生会话标题：
// 超过 sessionTitleMaxLen 个字符时截断并附加省略号。
func deriveTitle(message string) string {
	runes := []rune(message)
	if len(runes) > sessionTitleMaxLen {
		return string(runes[:sessionTitleMaxLen]) + "..."
	}
	return message
}

// GetSessions 返回用户的全部会话，按最近更新时间倒序。
func (s *chatService) GetSessions(userID uint) ([]model.ChatSession, error) {
	return s.chatRepo.FindSessionsByUser(userID)
}

// GetSessionWithMessages 返回用户拥有的指定会话及其全部消息（按时间升序）。
func (s *chatService) GetSessionWithMessages(sessionID, userID uint) (*model.ChatSession, []model.ChatMessage, error) {
	session, err := s.chatRepo.FindSessionByIDAndUser(sessionID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, err
	}

	messages, err := s.chatRepo.FindMessagesBySession(sessionID)
	if err != nil {
		return nil, nil, err
	}
	return session, messages, nil
}

// DeleteSession 删除用户拥有的指定会话，并级联删除其全部消息。
func (s *chatService) DeleteSession(sessionID, userID uint) error {
	session, err := s.chatRepo.FindSessionByIDAndUser(sessionID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	return s.chatRepo.DeleteSession(session)
}
