package service

import (
	"sync"
	"time"

	"exam_platform_backend/internal/config"
	"exam_platform_backend/internal/model"
	"exam_platform_backend/pkg/logger"
	"exam_platform_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// SessionManager 持有全部进行中的考试会话，按作答ID索引。
// 同一作答并发 Attach 只会得到同一个会话实例。
type SessionManager struct {
	store         sessionStore
	flushInterval time.Duration
	queueSize     int

	mu       sync.RWMutex
	sessions map[string]*ExamSession
}

func NewSessionManager(store sessionStore, cfg *config.ExamConfig) *SessionManager {
	return &SessionManager{
		store:         store,
		flushInterval: time.Duration(cfg.FlushIntervalSeconds) * time.Second,
		queueSize:     cfg.AutosaveQueueSize,
		sessions:      make(map[string]*ExamSession),
	}
}

// Attach 取出或创建会话并启动其时钟与 autosave 循环
func (m *SessionManager) Attach(attempt *model.Attempt, view *ExamView, answers map[string]AnswerValue) *ExamSession {
	m.mu.Lock()
	if s, ok := m.sessions[attempt.ID]; ok {
		m.mu.Unlock()
		return s
	}

	s := newExamSession(attempt, view, answers, m.store, m.flushInterval, m.queueSize)
	s.onClose = func() {
		m.mu.Lock()
		if m.sessions[attempt.ID] == s {
			delete(m.sessions, attempt.ID)
			monitoring.ActiveExamSessions.Dec()
		}
		m.mu.Unlock()
	}
	m.sessions[attempt.ID] = s
	monitoring.ActiveExamSessions.Inc()
	m.mu.Unlock()

	s.start()
	return s
}

func (m *SessionManager) Get(attemptID string) (*ExamSession, bool) {
	m.mu.RLock()
	s, ok := m.sessions[attemptID]
	m.mu.RUnlock()
	return s, ok
}

// Shutdown 在服务下线时挂起全部会话：不提交，只刷盘与持久化用时
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*ExamSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}

	if len(sessions) > 0 {
		logger.Log.Info("suspended active exam sessions", zap.Int("count", len(sessions)))
	}
}
