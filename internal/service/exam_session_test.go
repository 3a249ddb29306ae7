package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/util"
)

// fakeSessionStore 内存持久层,可注入失败
type fakeSessionStore struct {
	mu        sync.Mutex
	responses map[string]string // attemptID+"/"+questionID -> answer
	timeSpent map[string]int
	submitted map[string]bool

	upsertErr   error
	submitErr   error
	upsertCalls int
	submitCalls int
	lastResult  *model.Result
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		responses: make(map[string]string),
		timeSpent: make(map[string]int),
		submitted: make(map[string]bool),
	}
}

func (f *fakeSessionStore) UpsertResponse(attemptID, questionID, answer string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.responses[attemptID+"/"+questionID] = answer
	return nil
}

func (f *fakeSessionStore) UpdateAttemptTimeSpent(attemptID string, seconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeSpent[attemptID] = seconds
	return nil
}

func (f *fakeSessionStore) SubmitAttempt(attemptID string, timeSpent int, result *model.Result, sectionResults []model.SectionResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	if f.submitErr != nil {
		return f.submitErr
	}
	if f.submitted[attemptID] {
		return util.ErrAttemptSubmitted
	}
	f.submitted[attemptID] = true
	f.timeSpent[attemptID] = timeSpent
	f.lastResult = result
	return nil
}

func (f *fakeSessionStore) answer(attemptID, questionID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.responses[attemptID+"/"+questionID]
}

// newTestSession 不启动 run 循环,测试直接驱动 tick/saveOne/flushDirty
func newTestSession(t *testing.T, store sessionStore, timeSpent int) *ExamSession {
	t.Helper()
	attempt := &model.Attempt{
		UUIDBase:  model.UUIDBase{ID: "attempt-1"},
		ExamID:    "exam-1",
		UserID:    7,
		Status:    model.AttemptInProgress,
		TimeSpent: timeSpent,
	}
	return newExamSession(attempt, testView(t), nil, store, time.Hour, 16)
}

func TestSessionLastWriteWins(t *testing.T) {
	store := newFakeSessionStore()
	s := newTestSession(t, store, 0)

	if err := s.SetAnswer("q1", AnswerValue{OptionID: "q1b"}); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	if err := s.SetAnswer("q1", AnswerValue{OptionID: "q1a"}); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}

	// 落库排队期间读到的值已是最新
	s.saveOne("q1")
	if got := store.answer("attempt-1", "q1"); got != "q1a" {
		t.Errorf("persisted answer = %q, want q1a", got)
	}

	state := s.Snapshot()
	if state.Answers["q1"].OptionID != "q1a" {
		t.Errorf("snapshot answer = %+v", state.Answers["q1"])
	}
	if state.Pending != 0 {
		t.Errorf("pending = %d, want 0", state.Pending)
	}
}

func TestSessionSetAnswerValidation(t *testing.T) {
	s := newTestSession(t, newFakeSessionStore(), 0)

	if err := s.SetAnswer("missing", AnswerValue{OptionID: "q1a"}); !errors.Is(err, util.ErrQuestionNotFound) {
		t.Errorf("unknown question: err = %v", err)
	}
	if err := s.SetAnswer("q1", AnswerValue{OptionID: "q2a"}); !errors.Is(err, util.ErrInvalidAnswer) {
		t.Errorf("foreign option: err = %v", err)
	}
	if err := s.SetAnswer("q1", AnswerValue{Text: "12"}); !errors.Is(err, util.ErrInvalidAnswer) {
		t.Errorf("shape mismatch: err = %v", err)
	}
	// 清除答案合法
	if err := s.SetAnswer("q1", AnswerValue{}); err != nil {
		t.Errorf("clearing answer: err = %v", err)
	}
}

func TestSessionAutosaveFailureRetainsDirty(t *testing.T) {
	store := newFakeSessionStore()
	store.upsertErr = errors.New("db down")
	s := newTestSession(t, store, 0)

	if err := s.SetAnswer("q3", AnswerValue{Text: "12"}); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	s.saveOne("q3")

	if s.Snapshot().Pending != 1 {
		t.Fatalf("pending = %d, want 1 after failed save", s.Snapshot().Pending)
	}

	// 存储恢复后兜底刷盘补上
	store.mu.Lock()
	store.upsertErr = nil
	store.mu.Unlock()
	s.flushDirty()

	if got := store.answer("attempt-1", "q3"); got != "12" {
		t.Errorf("persisted answer = %q, want 12", got)
	}
	if s.Snapshot().Pending != 0 {
		t.Errorf("pending = %d, want 0 after retry", s.Snapshot().Pending)
	}
}

func TestSessionPalette(t *testing.T) {
	s := newTestSession(t, newFakeSessionStore(), 0)

	if err := s.SetAnswer("q1", AnswerValue{OptionID: "q1a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkVisited("q2"); err != nil {
		t.Fatal(err)
	}

	status := make(map[string]string)
	for _, item := range s.Snapshot().Palette {
		status[item.QuestionID] = item.Status
	}
	if status["q1"] != StatusAnswered {
		t.Errorf("q1 = %q, want %q", status["q1"], StatusAnswered)
	}
	if status["q2"] != StatusVisited {
		t.Errorf("q2 = %q, want %q", status["q2"], StatusVisited)
	}
	if status["q3"] != StatusNotVisited {
		t.Errorf("q3 = %q, want %q", status["q3"], StatusNotVisited)
	}
}

func TestSessionTimerCountdownAndAutoSubmit(t *testing.T) {
	store := newFakeSessionStore()
	// 30 分钟试卷已用 1798 秒,剩 2 秒
	s := newTestSession(t, store, 30*60-2)

	if s.RemainingSeconds() != 2 {
		t.Fatalf("remaining = %d, want 2", s.RemainingSeconds())
	}

	s.tick()
	if s.Submitted() {
		t.Fatal("submitted too early")
	}
	s.tick()

	if !s.Submitted() {
		t.Fatal("session not submitted after countdown reached zero")
	}
	if store.submitCalls != 1 {
		t.Errorf("submit calls = %d, want 1", store.submitCalls)
	}

	// 到时后时钟与提交均不再推进
	s.tick()
	s.tick()
	if store.submitCalls != 1 {
		t.Errorf("submit calls after extra ticks = %d, want 1", store.submitCalls)
	}
}

func TestSessionAutoSubmitRetriesAfterFailure(t *testing.T) {
	store := newFakeSessionStore()
	store.submitErr = errors.New("tx failed")
	s := newTestSession(t, store, 30*60-1)

	// 归零触发自动提交,事务失败,会话保持未提交
	s.tick()
	if store.submitCalls != 1 {
		t.Fatalf("submit calls = %d, want 1", store.submitCalls)
	}
	if s.Submitted() {
		t.Fatal("session marked submitted despite failed transaction")
	}

	// 存储恢复后下一次 tick 重试成功
	store.mu.Lock()
	store.submitErr = nil
	store.mu.Unlock()
	s.tick()
	if store.submitCalls != 2 {
		t.Errorf("submit calls = %d, want 2", store.submitCalls)
	}
	if !s.Submitted() {
		t.Error("session not submitted after retry")
	}
}

func TestSessionResumeWithElapsedTimeClamped(t *testing.T) {
	// 恢复时已超时:剩余时间钳为 0,启动即过期提交
	store := newFakeSessionStore()
	s := newTestSession(t, store, 31*60)

	if s.RemainingSeconds() != 0 {
		t.Fatalf("remaining = %d, want 0", s.RemainingSeconds())
	}

	s.expire()
	if !s.Submitted() {
		t.Fatal("expired session not submitted")
	}
}

func TestSessionSubmitIdempotent(t *testing.T) {
	store := newFakeSessionStore()
	s := newTestSession(t, store, 0)

	if err := s.SetAnswer("q1", AnswerValue{OptionID: "q1a"}); err != nil {
		t.Fatal(err)
	}

	first, _, err := s.Submit(SubmitReasonUser)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if first.ObtainedMarks != 2 {
		t.Errorf("obtained = %v, want 2", first.ObtainedMarks)
	}

	second, _, err := s.Submit(SubmitReasonUser)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if second != first {
		t.Error("repeat submit did not return stored result")
	}
	if store.submitCalls != 1 {
		t.Errorf("submit transactions = %d, want 1", store.submitCalls)
	}

	// 已提交的会话拒绝继续作答
	if err := s.SetAnswer("q1", AnswerValue{OptionID: "q1b"}); !errors.Is(err, util.ErrAttemptSubmitted) {
		t.Errorf("SetAnswer after submit: err = %v", err)
	}
}

func TestSessionSubmitFlushesUnsavedAnswers(t *testing.T) {
	store := newFakeSessionStore()
	s := newTestSession(t, store, 0)

	// 不触发 saveOne,答案只在内存里
	if err := s.SetAnswer("q3", AnswerValue{Text: "12"}); err != nil {
		t.Fatal(err)
	}

	result, _, err := s.Submit(SubmitReasonUser)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.ObtainedMarks != 3 {
		t.Errorf("obtained = %v, want 3 (in-memory answer graded)", result.ObtainedMarks)
	}
	if got := store.answer("attempt-1", "q3"); got != "12" {
		t.Errorf("final flush missing: persisted = %q", got)
	}
}

func TestSessionSubmitFailureLeavesAttemptOpen(t *testing.T) {
	store := newFakeSessionStore()
	store.submitErr = errors.New("tx failed")
	s := newTestSession(t, store, 0)

	_, _, err := s.Submit(SubmitReasonUser)
	if !errors.Is(err, util.ErrSubmissionFailed) {
		t.Fatalf("err = %v, want ErrSubmissionFailed", err)
	}
	if s.Submitted() {
		t.Fatal("session marked submitted despite transaction failure")
	}

	// 存储恢复后重试成功
	store.mu.Lock()
	store.submitErr = nil
	store.mu.Unlock()
	if _, _, err := s.Submit(SubmitReasonUser); err != nil {
		t.Fatalf("retry submit: %v", err)
	}
}

func TestSessionConcurrentSubmitSingleResult(t *testing.T) {
	store := newFakeSessionStore()
	s := newTestSession(t, store, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Submit(SubmitReasonUser)
		}()
	}
	wg.Wait()

	if store.submitCalls != 1 {
		t.Errorf("submit transactions = %d, want 1", store.submitCalls)
	}
}

func TestSessionEvents(t *testing.T) {
	store := newFakeSessionStore()
	s := newTestSession(t, store, 0)
	ch := s.Subscribe()

	s.SetAnswer("q1", AnswerValue{OptionID: "q1a"})
	s.saveOne("q1")
	s.tick()

	var types []SessionEventType
	for len(ch) > 0 {
		types = append(types, (<-ch).Type)
	}
	want := []SessionEventType{EventSaved, EventTick}
	if fmt.Sprint(types) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", types, want)
	}

	s.Unsubscribe(ch)
	if _, open := <-ch; open {
		t.Error("channel still open after unsubscribe")
	}
}

func TestSessionManagerAttachIdempotent(t *testing.T) {
	store := newFakeSessionStore()
	m := NewSessionManager(store, &testExamConfig)

	attempt := &model.Attempt{
		UUIDBase: model.UUIDBase{ID: "attempt-9"},
		ExamID:   "exam-1",
		UserID:   7,
		Status:   model.AttemptInProgress,
	}
	view := testView(t)

	first := m.Attach(attempt, view, nil)
	second := m.Attach(attempt, view, nil)
	if first != second {
		t.Error("Attach created a second session for the same attempt")
	}

	if _, ok := m.Get("attempt-9"); !ok {
		t.Error("Get after Attach failed")
	}

	first.Close()
	if _, ok := m.Get("attempt-9"); ok {
		t.Error("closed session still registered")
	}
}

func TestSessionManagerShutdownPersistsState(t *testing.T) {
	store := newFakeSessionStore()
	m := NewSessionManager(store, &testExamConfig)

	attempt := &model.Attempt{
		UUIDBase:  model.UUIDBase{ID: "attempt-10"},
		ExamID:    "exam-1",
		UserID:    7,
		Status:    model.AttemptInProgress,
		TimeSpent: 40,
	}
	s := m.Attach(attempt, testView(t), nil)
	if err := s.SetAnswer("q1", AnswerValue{OptionID: "q1a"}); err != nil {
		t.Fatal(err)
	}

	m.Shutdown()

	if store.answer("attempt-10", "q1") != "q1a" {
		t.Error("shutdown did not flush dirty answer")
	}
	store.mu.Lock()
	spent := store.timeSpent["attempt-10"]
	submitted := store.submitted["attempt-10"]
	store.mu.Unlock()
	if spent < 40 {
		t.Errorf("time spent = %d, want >= 40", spent)
	}
	if submitted {
		t.Error("shutdown must not submit attempts")
	}
}
