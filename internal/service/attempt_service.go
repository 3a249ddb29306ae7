package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"exam_platform_backend/internal/config"
	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/repository"
	"exam_platform_backend/internal/util"
	"exam_platform_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const examSnapshotKeyPrefix = "exam:snapshot:"

// 会话依赖的持久化操作的窄接口，测试时用内存假实现替换
type examStore interface {
	FindByID(id string) (*model.Exam, error)
}

type attemptStore interface {
	Create(attempt *model.Attempt) error
	FindByID(id string) (*model.Attempt, error)
	ListByExamAndUser(examID string, userID uint) ([]model.Attempt, error)
	FindInProgress(examID string, userID uint) (*model.Attempt, error)
}

type responseStore interface {
	ListByAttempt(attemptID string) ([]model.Response, error)
}

type resultStore interface {
	FindByAttempt(attemptID string) (*model.Result, error)
}

type AttemptService struct {
	exams     examStore
	attempts  attemptStore
	responses responseStore
	results   resultStore
	sessions  *SessionManager
	rdb       *redis.Client
	ttl       time.Duration
}

func NewAttemptService(
	examRepo *repository.ExamRepository,
	attemptRepo *repository.AttemptRepository,
	responseRepo *repository.ResponseRepository,
	resultRepo *repository.ResultRepository,
	sessions *SessionManager,
	rdb *redis.Client,
	cfg *config.ExamConfig,
) *AttemptService {
	return &AttemptService{
		exams:     examRepo,
		attempts:  attemptRepo,
		responses: responseRepo,
		results:   resultRepo,
		sessions:  sessions,
		rdb:       rdb,
		ttl:       time.Duration(cfg.SnapshotTTLMinutes) * time.Minute,
	}
}

// Resolve 决定某考生对某试卷是续答、拒绝还是新开作答：
//  1. 存在 in_progress 作答 → 恢复它，并回灌已存答案
//  2. 有已提交记录且未显式要求重考 → ErrAlreadySubmitted
//  3. 次数用尽 → ErrAttemptsExhausted
//  4. 否则新建作答；并发创建撞上唯一索引时改为恢复先到者
func (s *AttemptService) Resolve(examID string, userID uint, retake bool) (*ExamSession, error) {
	view, err := s.loadExamView(examID)
	if err != nil {
		return nil, err
	}

	attempts, err := s.attempts.ListByExamAndUser(examID, userID)
	if err != nil {
		return nil, err
	}

	var submitted int
	for i := range attempts {
		switch attempts[i].Status {
		case model.AttemptInProgress:
			return s.resume(&attempts[i], view)
		case model.AttemptSubmitted:
			submitted++
		}
	}

	if submitted > 0 && !retake {
		return nil, util.ErrAlreadySubmitted
	}
	if view.MaxAttempts > 0 && submitted >= view.MaxAttempts {
		return nil, util.ErrAttemptsExhausted
	}

	attempt := &model.Attempt{
		ExamID: examID,
		UserID: userID,
	}
	if err := s.attempts.Create(attempt); err != nil {
		if repository.IsDuplicateActive(err) {
			// 双开标签页竞态：另一条请求已经建好，恢复那条
			winner, ferr := s.attempts.FindInProgress(examID, userID)
			if ferr != nil {
				return nil, err
			}
			return s.resume(winner, view)
		}
		return nil, err
	}

	return s.sessions.Attach(attempt, view, nil), nil
}

// resume 恢复进行中的作答：把已持久化的答案反序列化回内存答案表
func (s *AttemptService) resume(attempt *model.Attempt, view *ExamView) (*ExamSession, error) {
	if session, ok := s.sessions.Get(attempt.ID); ok {
		return session, nil
	}

	responses, err := s.responses.ListByAttempt(attempt.ID)
	if err != nil {
		return nil, err
	}

	answers := make(map[string]AnswerValue, len(responses))
	for _, r := range responses {
		q, ok := view.Question(r.QuestionID)
		if !ok {
			continue
		}
		answers[r.QuestionID] = DecodeAnswer(q.Kind, r.Answer)
	}

	return s.sessions.Attach(attempt, view, answers), nil
}

// Session 取出属于该考生的活动会话
func (s *AttemptService) Session(attemptID string, userID uint) (*ExamSession, error) {
	session, ok := s.sessions.Get(attemptID)
	if !ok {
		return nil, util.ErrAttemptNotFound
	}
	if session.UserID() != userID {
		return nil, util.ErrNotYourAttempt
	}
	return session, nil
}

// Result 查询某次作答的成绩（仅限本人）
func (s *AttemptService) Result(attemptID string, userID uint) (*model.Result, error) {
	attempt, err := s.attempts.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, util.ErrNotYourAttempt
	}
	result, err := s.results.FindByAttempt(attemptID)
	if err != nil {
		// 作答还在进行中时尚无成绩行
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrResultNotFound
		}
		return nil, err
	}
	return result, nil
}

// loadExamView 取试卷快照：优先 Redis 缓存，未命中回源数据库并回填
func (s *AttemptService) loadExamView(examID string) (*ExamView, error) {
	exam, err := s.loadExam(examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrExamNotFound
		}
		return nil, err
	}
	if !exam.IsPublished {
		return nil, util.ErrExamNotPublished
	}
	return BuildExamView(exam)
}

func (s *AttemptService) loadExam(examID string) (*model.Exam, error) {
	key := examSnapshotKeyPrefix + examID

	if s.rdb != nil {
		ctx := context.Background()
		if raw, err := s.rdb.Get(ctx, key).Result(); err == nil {
			var exam model.Exam
			if err := json.Unmarshal([]byte(raw), &exam); err == nil {
				return &exam, nil
			}
		} else if err != redis.Nil {
			logger.Log.Warn("exam snapshot cache read failed",
				zap.String("examId", examID), zap.Error(err))
		}
	}

	exam, err := s.exams.FindByID(examID)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(exam); err == nil {
			if err := s.rdb.Set(context.Background(), key, raw, s.ttl).Err(); err != nil {
				logger.Log.Warn("exam snapshot cache write failed",
					zap.String("examId", examID), zap.Error(err))
			}
		}
	}

	return exam, nil
}

// InvalidateExamSnapshot 试卷被修改或下架后废弃缓存快照
func InvalidateExamSnapshot(rdb *redis.Client, examID string) {
	if rdb == nil {
		return
	}
	if err := rdb.Del(context.Background(), examSnapshotKeyPrefix+examID).Err(); err != nil {
		logger.Log.Warn("exam snapshot cache invalidation failed",
			zap.String("examId", examID), zap.Error(err))
	}
}
