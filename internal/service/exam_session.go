package service

import (
	"errors"
	"sync"
	"time"

	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/util"
	"exam_platform_backend/pkg/logger"
	"exam_platform_backend/pkg/monitoring"

	"go.uber.org/zap"
)

const (
	SubmitReasonUser    = "user"
	SubmitReasonTimeout = "timeout"
)

const (
	StatusAnswered   = "answered"
	StatusVisited    = "visited"
	StatusNotVisited = "not-visited"
)

type SessionEventType string

const (
	EventTick      SessionEventType = "tick"
	EventSaved     SessionEventType = "saved"
	EventExpired   SessionEventType = "expired"
	EventSubmitted SessionEventType = "submitted"
)

// SessionEvent 推送给前端的会话事件：剩余秒数、保存进度等
type SessionEvent struct {
	Type       SessionEventType `json:"type"`
	Remaining  int              `json:"remaining"`
	QuestionID string           `json:"questionId,omitempty"`
	Pending    int              `json:"pending"` // 尚未确认落库的答案数
}

// sessionStore 会话对持久层的全部依赖
type sessionStore interface {
	UpsertResponse(attemptID, questionID, answer string) error
	UpdateAttemptTimeSpent(attemptID string, seconds int) error
	SubmitAttempt(attemptID string, timeSpent int, result *model.Result, sectionResults []model.SectionResult) error
}

// ExamSession 一条进行中作答的内存会话：
// 答案表是作答期间的权威数据，autosave 只是持久化兜底；
// 提交判分直接读内存答案，不回读存储。
type ExamSession struct {
	attemptID string
	userID    uint
	view      *ExamView
	store     sessionStore

	mu             sync.Mutex
	answers        map[string]AnswerValue
	visited        map[string]bool
	dirty          map[string]bool
	remaining      int
	timeSpent      int
	submitted      bool
	result         *model.Result
	sectionResults []model.SectionResult

	// submitMu 串行化提交路径：手动提交与超时自动提交可能同时到达，
	// 后到者直接拿到已存结果
	submitMu sync.Mutex

	saveCh     chan string
	done       chan struct{}
	closeOnce  sync.Once
	expireOnce sync.Once
	onClose    func()

	flushInterval time.Duration

	subMu  sync.Mutex
	subs   map[chan SessionEvent]struct{}
	closed bool
}

func newExamSession(attempt *model.Attempt, view *ExamView, answers map[string]AnswerValue, store sessionStore, flushInterval time.Duration, queueSize int) *ExamSession {
	if answers == nil {
		answers = make(map[string]AnswerValue)
	}
	remaining := view.Duration*60 - attempt.TimeSpent
	if remaining < 0 {
		remaining = 0
	}

	visited := make(map[string]bool, len(answers))
	for qid := range answers {
		visited[qid] = true
	}

	return &ExamSession{
		attemptID:     attempt.ID,
		userID:        attempt.UserID,
		view:          view,
		store:         store,
		answers:       answers,
		visited:       visited,
		dirty:         make(map[string]bool),
		remaining:     remaining,
		timeSpent:     attempt.TimeSpent,
		saveCh:        make(chan string, queueSize),
		done:          make(chan struct{}),
		flushInterval: flushInterval,
		subs:          make(map[chan SessionEvent]struct{}),
	}
}

func (s *ExamSession) start() {
	go s.run()
	if s.RemainingSeconds() == 0 {
		// 恢复会话时时间可能已经耗尽
		go s.expire()
	}
}

func (s *ExamSession) run() {
	ticker := time.NewTicker(time.Second)
	flush := time.NewTicker(s.flushInterval)
	defer ticker.Stop()
	defer flush.Stop()

	for {
		select {
		case <-s.done:
			return
		case qid := <-s.saveCh:
			s.saveOne(qid)
		case <-ticker.C:
			s.tick()
		case <-flush.C:
			s.flushDirty()
			s.persistTimeSpent()
		}
	}
}

func (s *ExamSession) AttemptID() string { return s.attemptID }
func (s *ExamSession) UserID() uint      { return s.userID }
func (s *ExamSession) View() *ExamView   { return s.view }

func (s *ExamSession) RemainingSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

func (s *ExamSession) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

// SetAnswer 唯一的答案写入口。内存同步更新（同一题后写覆盖先写），
// 随后投递一次尽力而为的持久化；队列满时靠周期性兜底刷盘补救。
func (s *ExamSession) SetAnswer(questionID string, value AnswerValue) error {
	q, ok := s.view.Question(questionID)
	if !ok {
		return util.ErrQuestionNotFound
	}
	if err := validateAnswer(q, value); err != nil {
		return err
	}

	s.mu.Lock()
	if s.submitted {
		s.mu.Unlock()
		return util.ErrAttemptSubmitted
	}
	s.answers[questionID] = value
	s.visited[questionID] = true
	s.dirty[questionID] = true
	s.mu.Unlock()

	select {
	case s.saveCh <- questionID:
	default:
		// 队列已满：答案仍在内存里，周期性刷盘会补上
	}
	return nil
}

// MarkVisited 记录试题被浏览，用于答题卡状态
func (s *ExamSession) MarkVisited(questionID string) error {
	if _, ok := s.view.Question(questionID); !ok {
		return util.ErrQuestionNotFound
	}
	s.mu.Lock()
	s.visited[questionID] = true
	s.mu.Unlock()
	return nil
}

// validateAnswer 校验答案形态与题型匹配、所选选项确实属于该题
func validateAnswer(q QuestionView, v AnswerValue) error {
	if v.IsEmpty() {
		return nil // 清除答案始终合法
	}
	switch q.Kind {
	case model.SingleChoice:
		if v.OptionID == "" || len(v.OptionIDs) > 0 || v.Text != "" {
			return util.ErrInvalidAnswer
		}
		if !hasOption(q, v.OptionID) {
			return util.ErrInvalidAnswer
		}
	case model.MultiChoice:
		if len(v.OptionIDs) == 0 || v.OptionID != "" || v.Text != "" {
			return util.ErrInvalidAnswer
		}
		for _, id := range v.OptionIDs {
			if !hasOption(q, id) {
				return util.ErrInvalidAnswer
			}
		}
	case model.Numeric:
		if v.Text == "" || v.OptionID != "" || len(v.OptionIDs) > 0 {
			return util.ErrInvalidAnswer
		}
	}
	return nil
}

func hasOption(q QuestionView, optionID string) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// saveOne 将某题当前答案落库。失败只计数与记日志，不打断作答。
func (s *ExamSession) saveOne(questionID string) {
	q, ok := s.view.Question(questionID)
	if !ok {
		return
	}

	s.mu.Lock()
	if s.submitted {
		s.mu.Unlock()
		return
	}
	value := s.answers[questionID]
	s.mu.Unlock()

	encoded, err := EncodeAnswer(q.Kind, value)
	if err != nil {
		return
	}

	if err := s.store.UpsertResponse(s.attemptID, questionID, encoded); err != nil {
		monitoring.AutosaveFailures.Inc()
		logger.Log.Warn("answer autosave failed",
			zap.String("attemptId", s.attemptID),
			zap.String("questionId", questionID),
			zap.Error(err))
		return
	}

	s.mu.Lock()
	// 落库期间答案可能又变了，只有值未变才算保存完成
	current, _ := EncodeAnswer(q.Kind, s.answers[questionID])
	if current == encoded {
		delete(s.dirty, questionID)
	}
	pending := len(s.dirty)
	remaining := s.remaining
	s.mu.Unlock()

	s.publish(SessionEvent{Type: EventSaved, QuestionID: questionID, Pending: pending, Remaining: remaining})
}

// flushDirty 周期性兜底：把所有未确认落库的答案重发一遍
func (s *ExamSession) flushDirty() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.dirty))
	for qid := range s.dirty {
		ids = append(ids, qid)
	}
	s.mu.Unlock()

	for _, qid := range ids {
		s.saveOne(qid)
	}
}

func (s *ExamSession) persistTimeSpent() {
	s.mu.Lock()
	if s.submitted {
		s.mu.Unlock()
		return
	}
	spent := s.timeSpent
	s.mu.Unlock()

	if err := s.store.UpdateAttemptTimeSpent(s.attemptID, spent); err != nil {
		logger.Log.Warn("failed to persist attempt time spent",
			zap.String("attemptId", s.attemptID), zap.Error(err))
	}
}

// tick 每秒推进一次：累计用时、递减剩余时间，归零触发自动提交
func (s *ExamSession) tick() {
	s.mu.Lock()
	if s.submitted {
		s.mu.Unlock()
		return
	}
	s.timeSpent++
	if s.remaining > 0 {
		s.remaining--
	}
	remaining := s.remaining
	pending := len(s.dirty)
	s.mu.Unlock()

	s.publish(SessionEvent{Type: EventTick, Remaining: remaining, Pending: pending})

	if remaining == 0 {
		s.expire()
	}
}

// expire 时间耗尽：只通知订阅者一次，但提交失败不消耗机会，
// 每次 tick 归零都会再走到这里重试，直到提交成功
func (s *ExamSession) expire() {
	s.expireOnce.Do(func() {
		s.publish(SessionEvent{Type: EventExpired, Remaining: 0})
	})
	if _, _, err := s.Submit(SubmitReasonTimeout); err != nil &&
		!errors.Is(err, util.ErrAttemptSubmitted) {
		logger.Log.Error("auto submit on expiry failed",
			zap.String("attemptId", s.attemptID), zap.Error(err))
	}
}

// Submit 提交状态机：in_progress → submitted，不可逆。
//  1. 将全部内存答案经与 autosave 相同的 upsert 通道最终落库
//  2. 直接用内存答案判分（避免读写竞态）
//  3. 状态翻转与成绩写入在同一事务内完成
//
// 对重复调用幂等：已提交的会话直接返回已存成绩；
// 事务失败时作答保持 in_progress，可安全重试。
func (s *ExamSession) Submit(reason string) (*model.Result, []model.SectionResult, error) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	s.mu.Lock()
	if s.submitted {
		result, sectionResults := s.result, s.sectionResults
		s.mu.Unlock()
		return result, sectionResults, nil
	}
	answers := make(map[string]AnswerValue, len(s.answers))
	for qid, v := range s.answers {
		answers[qid] = v
	}
	timeSpent := s.timeSpent
	s.mu.Unlock()

	for qid, v := range answers {
		q, ok := s.view.Question(qid)
		if !ok {
			continue
		}
		encoded, err := EncodeAnswer(q.Kind, v)
		if err != nil {
			continue
		}
		if err := s.store.UpsertResponse(s.attemptID, qid, encoded); err != nil {
			// 判分以内存答案为准，这里的失败只影响留档
			monitoring.AutosaveFailures.Inc()
			logger.Log.Warn("final answer flush failed",
				zap.String("attemptId", s.attemptID),
				zap.String("questionId", qid),
				zap.Error(err))
		}
	}

	result, sectionResults := GradeExam(s.view, answers)
	result.AttemptID = s.attemptID

	if err := s.store.SubmitAttempt(s.attemptID, timeSpent, result, sectionResults); err != nil {
		if errors.Is(err, util.ErrAttemptSubmitted) {
			return nil, nil, util.ErrAttemptSubmitted
		}
		logger.Log.Error("submission transaction failed",
			zap.String("attemptId", s.attemptID), zap.Error(err))
		return nil, nil, util.ErrSubmissionFailed
	}

	s.mu.Lock()
	s.submitted = true
	s.result = result
	s.sectionResults = sectionResults
	s.mu.Unlock()

	monitoring.ExamSubmissions.WithLabelValues(reason).Inc()
	s.publish(SessionEvent{Type: EventSubmitted, Remaining: 0})
	s.Close()

	return result, sectionResults, nil
}

// Stop 不提交地挂起会话（服务器下线时用）：
// 刷盘未保存答案、持久化用时，重启后可从存储恢复
func (s *ExamSession) Stop() {
	s.flushDirty()
	s.persistTimeSpent()
	s.Close()
}

func (s *ExamSession) Close() {
	s.closeOnce.Do(func() {
		close(s.done)

		s.subMu.Lock()
		s.closed = true
		for ch := range s.subs {
			close(ch)
		}
		s.subs = make(map[chan SessionEvent]struct{})
		s.subMu.Unlock()

		if s.onClose != nil {
			s.onClose()
		}
	})
}

// Subscribe 返回会话事件通道。慢消费者不被等待，事件直接丢弃。
func (s *ExamSession) Subscribe() chan SessionEvent {
	ch := make(chan SessionEvent, 16)
	s.subMu.Lock()
	if s.closed {
		close(ch)
	} else {
		s.subs[ch] = struct{}{}
	}
	s.subMu.Unlock()
	return ch
}

func (s *ExamSession) Unsubscribe(ch chan SessionEvent) {
	s.subMu.Lock()
	if _, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(ch)
	}
	s.subMu.Unlock()
}

func (s *ExamSession) publish(event SessionEvent) {
	s.subMu.Lock()
	for ch := range s.subs {
		select {
		case ch <- event:
		default:
		}
	}
	s.subMu.Unlock()
}

// QuestionPaletteItem 答题卡单元：answered / visited / not-visited
type QuestionPaletteItem struct {
	QuestionID string `json:"questionId"`
	Status     string `json:"status"`
}

// SessionState 供前端渲染的会话快照
type SessionState struct {
	AttemptID string                 `json:"attemptId"`
	ExamID    string                 `json:"examId"`
	ExamTitle string                 `json:"examTitle"`
	Remaining int                    `json:"remaining"`
	TimeSpent int                    `json:"timeSpent"`
	Submitted bool                   `json:"submitted"`
	Pending   int                    `json:"pending"`
	Answers   map[string]AnswerValue `json:"answers"`
	Palette   []QuestionPaletteItem  `json:"palette"`
}

func (s *ExamSession) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := make(map[string]AnswerValue, len(s.answers))
	for qid, v := range s.answers {
		if !v.IsEmpty() {
			answers[qid] = v
		}
	}

	palette := make([]QuestionPaletteItem, 0, s.view.QuestionCount())
	for _, sec := range s.view.Sections {
		for _, q := range sec.Questions {
			status := StatusNotVisited
			if v, ok := s.answers[q.ID]; ok && !v.IsEmpty() {
				status = StatusAnswered
			} else if s.visited[q.ID] {
				status = StatusVisited
			}
			palette = append(palette, QuestionPaletteItem{QuestionID: q.ID, Status: status})
		}
	}

	return SessionState{
		AttemptID: s.attemptID,
		ExamID:    s.view.ID,
		ExamTitle: s.view.Title,
		Remaining: s.remaining,
		TimeSpent: s.timeSpent,
		Submitted: s.submitted,
		Pending:   len(s.dirty),
		Answers:   answers,
		Palette:   palette,
	}
}
