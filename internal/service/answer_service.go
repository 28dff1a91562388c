package service

import (
	"context"
	"encoding/json"
	"readcode_backend/internal/model"
	"readcode_backend/internal/repository"
	"readcode_backend/internal/util"
	"readcode_backend/pkg/logger"
	"readcode_backend/pkg/monitoring"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AnswerPublisher 发布扇出的窄接口，便于在测试里替换掉真实的 hub
type AnswerPublisher interface {
	PublishAnswers(userID uint, classCode, challengeMd5 string, complete bool, numCorrect int, history *model.ChallengeHistory, maxHistoryLength int)
	PublishLikeDislike(userID uint, classCode, challengeMd5 string, likeDislike int16)
}

// AnswerService 把一次提交串成完整链路：逐调用判定、事务内落库、
// 满足发布资格时向看板扇出。落库和扇出都不阻塞判定结果的返回。
type AnswerService struct {
	DB               *gorm.DB
	Content          *ContentService
	Comparator       *Comparator
	InfoRepo         *repository.ChallengeInfoRepository
	HistoryRepo      *repository.AnswerHistoryRepository
	ClassRepo        *repository.ClassRepository
	SessionRepo      *repository.SessionRepository
	UserRepo         *repository.UserRepository
	Publisher        AnswerPublisher
	MaxHistoryLength int
}

func NewAnswerService(
	db *gorm.DB,
	content *ContentService,
	comparator *Comparator,
	infoRepo *repository.ChallengeInfoRepository,
	historyRepo *repository.AnswerHistoryRepository,
	classRepo *repository.ClassRepository,
	sessionRepo *repository.SessionRepository,
	userRepo *repository.UserRepository,
	publisher AnswerPublisher,
	maxHistoryLength int,
) *AnswerService {
	return &AnswerService{
		DB:               db,
		Content:          content,
		Comparator:       comparator,
		InfoRepo:         infoRepo,
		HistoryRepo:      historyRepo,
		ClassRepo:        classRepo,
		SessionRepo:      sessionRepo,
		UserRepo:         userRepo,
		Publisher:        publisher,
		MaxHistoryLength: maxHistoryLength,
	}
}

// CheckAnswers 判定一次提交并记录结果。
// 返回值与调用顺序一一对应；记录失败只影响看板，不影响判定结果。
func (s *AnswerService) CheckAnswers(ctx context.Context, identity model.Identity, names model.ChallengeNames, responses []string) ([]model.ChallengeResult, error) {
	info, err := s.Content.FindFunctionInfo(names)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results := make([]model.ChallengeResult, len(info.Invocations))
	for i := range info.Invocations {
		response := ""
		if i < len(responses) {
			response = responses[i]
		}
		results[i] = s.Comparator.CheckResponse(ctx, info, i, response)
		monitoring.AnswerCheckCounter.WithLabelValues(string(names.Language), resultLabel(results[i])).Inc()
	}
	monitoring.AnswerCheckDuration.WithLabelValues(string(names.Language)).Observe(time.Since(start).Seconds())

	s.recordAnswers(identity, names, results)
	return results, nil
}

func resultLabel(r model.ChallengeResult) string {
	switch r.Status() {
	case model.Correct:
		return "correct"
	case model.Incorrect:
		return "incorrect"
	default:
		return "unanswered"
	}
}

// recordAnswers 把汇总行和逐调用历史放进同一个事务。
// 身份无效说明请求管线有问题，告警后跳过而不是让提交失败。
func (s *AnswerService) recordAnswers(identity model.Identity, names model.ChallengeNames, results []model.ChallengeResult) {
	if !identity.Valid() {
		logger.Log.Warn("Skipping answer recording: no identity on request",
			zap.String("challenge", names.Challenge))
		return
	}

	allCorrect := true
	numCorrect := 0
	answerMap := make(map[string]string, len(results))
	for _, r := range results {
		if r.Status() != model.Correct {
			allCorrect = false
		} else {
			numCorrect++
		}
		answerMap[r.Invocation] = r.UserResponse
	}
	answersJSON, err := json.Marshal(answerMap)
	if err != nil {
		logger.Log.Error("Marshal answers failed", zap.Error(err))
		return
	}

	histories := make([]*model.ChallengeHistory, len(results))
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		infoRepo := s.InfoRepo.WithTx(tx)
		historyRepo := s.HistoryRepo.WithTx(tx)

		if err := infoRepo.UpsertAnswers(identity, names.Md5(), allCorrect, string(answersJSON)); err != nil {
			return err
		}

		for i, r := range results {
			md5 := names.InvocationMd5(r.Invocation)
			history, err := historyRepo.LoadOrNew(identity, md5, r.Invocation)
			if err != nil {
				return err
			}
			switch r.Status() {
			case model.Correct:
				history.MarkCorrect(r.UserResponse, s.MaxHistoryLength)
			case model.Incorrect:
				history.MarkIncorrect(r.UserResponse, s.MaxHistoryLength)
			default:
				history.MarkUnanswered()
			}
			if err := historyRepo.Upsert(identity, md5, history); err != nil {
				return err
			}
			histories[i] = history
		}
		return nil
	})
	if err != nil {
		logger.Log.Error("Failed to record answers",
			zap.String("challenge", names.Challenge), zap.Error(err))
		return
	}

	classCode, ok := s.shouldPublish(identity)
	if !ok {
		return
	}
	challengeMd5 := names.Md5()
	for _, history := range histories {
		s.Publisher.PublishAnswers(identity.UserID, classCode, challengeMd5, allCorrect, numCorrect, history, s.MaxHistoryLength)
	}
}

// shouldPublish 发布资格：登录用户、已加入启用的班级，且该班的
// 教师正在某个在线会话上观察这个班。任何一环查询失败都按不发布处理。
func (s *AnswerService) shouldPublish(identity model.Identity) (string, bool) {
	if !identity.IsUser() {
		return "", false
	}
	user, err := s.UserRepo.FindByID(identity.UserID)
	if err != nil {
		logger.Log.Warn("Publish eligibility: user lookup failed", zap.Uint("userId", identity.UserID), zap.Error(err))
		return "", false
	}
	if user.EnrolledClassCode == "" {
		return "", false
	}
	class, err := s.ClassRepo.FindByCode(user.EnrolledClassCode)
	if err != nil || !class.Enabled {
		return "", false
	}
	active, err := s.SessionRepo.HasActiveClass(class.TeacherRef, class.ClassCode)
	if err != nil {
		logger.Log.Warn("Publish eligibility: session lookup failed", zap.Error(err))
		return "", false
	}
	return class.ClassCode, active
}

// SaveLikeDislike 记录点赞/点踩并在满足发布资格时通知看板。
// 值照提交保存，切换语义由客户端负责。
func (s *AnswerService) SaveLikeDislike(identity model.Identity, names model.ChallengeNames, likeDislike int16) error {
	if likeDislike < model.LikeDislikeNone || likeDislike > model.DislikeSelected {
		return util.ErrInvalidLikeDislike
	}
	if _, err := s.Content.FindFunctionInfo(names); err != nil {
		return err
	}
	if !identity.Valid() {
		logger.Log.Warn("Skipping like/dislike: no identity on request",
			zap.String("challenge", names.Challenge))
		return nil
	}
	if err := s.InfoRepo.UpsertLikeDislike(identity, names.Md5(), likeDislike); err != nil {
		return err
	}
	if classCode, ok := s.shouldPublish(identity); ok {
		s.Publisher.PublishLikeDislike(identity.UserID, classCode, names.Md5(), likeDislike)
	}
	return nil
}

// ClearChallengeAnswers 清空某身份对单个挑战的全部答题状态
func (s *AnswerService) ClearChallengeAnswers(identity model.Identity, names model.ChallengeNames) error {
	info, err := s.Content.FindFunctionInfo(names)
	if err != nil {
		return err
	}
	if !identity.Valid() {
		return nil
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := s.InfoRepo.WithTx(tx).DeleteFor(identity, names.Md5()); err != nil {
			return err
		}
		md5s := make([]string, len(info.Invocations))
		for i, inv := range info.Invocations {
			md5s[i] = names.InvocationMd5(inv)
		}
		_, err := s.HistoryRepo.WithTx(tx).DeleteFor(identity, md5s)
		return err
	})
	if err != nil {
		return err
	}
	s.publishCleared(identity, info)
	return nil
}

// publishCleared 让正在观察的看板把该学员的行回退到未作答状态
func (s *AnswerService) publishCleared(identity model.Identity, info *model.FunctionInfo) {
	classCode, ok := s.shouldPublish(identity)
	if !ok {
		return
	}
	for _, inv := range info.Invocations {
		s.Publisher.PublishAnswers(identity.UserID, classCode, info.Names.Md5(),
			false, 0, model.NewChallengeHistory(inv), s.MaxHistoryLength)
	}
}

// ClearGroupAnswers 清空某身份在整个挑战组上的答题状态
func (s *AnswerService) ClearGroupAnswers(identity model.Identity, language model.LanguageName, group string) error {
	challenges := s.Content.ChallengesInGroup(language, group)
	if len(challenges) == 0 {
		return util.ErrChallengeNotFound
	}
	if !identity.Valid() {
		return nil
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		infoRepo := s.InfoRepo.WithTx(tx)
		historyRepo := s.HistoryRepo.WithTx(tx)
		for _, info := range challenges {
			if _, err := infoRepo.DeleteFor(identity, info.Names.Md5()); err != nil {
				return err
			}
			md5s := make([]string, len(info.Invocations))
			for i, inv := range info.Invocations {
				md5s[i] = info.Names.InvocationMd5(inv)
			}
			if _, err := historyRepo.DeleteFor(identity, md5s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, info := range challenges {
		s.publishCleared(identity, info)
	}
	return nil
}

// ChallengeState 某身份对单个挑战的当前状态，用于页面回填
type ChallengeState struct {
	AllCorrect  bool              `json:"allCorrect"`
	LikeDislike int16             `json:"likeDislike"`
	Answers     map[string]string `json:"answers"`
}

func (s *AnswerService) ChallengeStateFor(identity model.Identity, names model.ChallengeNames) (*ChallengeState, error) {
	if _, err := s.Content.FindFunctionInfo(names); err != nil {
		return nil, err
	}
	state := &ChallengeState{Answers: map[string]string{}}
	if !identity.Valid() {
		return state, nil
	}
	allCorrect, likeDislike, answersJSON, err := s.InfoRepo.FindFor(identity, names.Md5())
	if err != nil {
		return nil, err
	}
	state.AllCorrect = allCorrect
	state.LikeDislike = likeDislike
	if answersJSON != "" {
		if err := json.Unmarshal([]byte(answersJSON), &state.Answers); err != nil {
			return nil, err
		}
	}
	return state, nil
}
