package service

import (
	"context"
	"readcode_backend/internal/model"
	"readcode_backend/internal/repository"
	"readcode_backend/internal/util"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordingPublisher struct {
	mu           sync.Mutex
	answerEvents []DashboardInfo
	likeEvents   []LikeDislikeInfo
	targets      []string
}

func (p *recordingPublisher) PublishAnswers(userID uint, classCode, challengeMd5 string, complete bool, numCorrect int, history *model.ChallengeHistory, maxHistoryLength int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answerEvents = append(p.answerEvents, DashboardInfo{
		UserID:     userID,
		Complete:   complete,
		NumCorrect: numCorrect,
		History:    DashboardHistory{Invocation: history.Invocation, Correct: history.Correct},
	})
	p.targets = append(p.targets, TargetName(classCode, challengeMd5))
}

func (p *recordingPublisher) PublishLikeDislike(userID uint, classCode, challengeMd5 string, likeDislike int16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.likeEvents = append(p.likeEvents, LikeDislikeInfo{UserID: userID, LikeDislike: likeDislikeEmoji(likeDislike)})
	p.targets = append(p.targets, TargetName(classCode, challengeMd5))
}

type answerServiceFixture struct {
	svc       *AnswerService
	db        *gorm.DB
	publisher *recordingPublisher
	users     *repository.UserRepository
	classes   *repository.ClassRepository
	sessions  *repository.SessionRepository
}

const answerTestContent = `
languages:
  - language: java
    groups:
      - name: Boolean Expressions
        challenges:
          - name: isEven
            returnType: boolean
            invocations:
              - isEven(2)
              - isEven(3)
            answers:
              - "true"
              - "false"
          - name: isOdd
            returnType: boolean
            invocations:
              - isOdd(1)
            answers:
              - "true"
`

func newAnswerServiceFixture(t *testing.T) *answerServiceFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.BrowserSession{},
		&model.UserSession{},
		&model.Class{},
		&model.Enrollee{},
		&model.UserChallengeInfo{},
		&model.SessionChallengeInfo{},
		&model.UserAnswerHistory{},
		&model.SessionAnswerHistory{},
	))

	content, err := NewContentService(writeContentFile(t, answerTestContent))
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	users := repository.NewUserRepository(db)
	classes := repository.NewClassRepository(db)
	sessions := repository.NewSessionRepository(db)

	// 布尔标量在本地比较，不会触达求值器池
	svc := NewAnswerService(
		db,
		content,
		NewComparator(nil, nil),
		repository.NewChallengeInfoRepository(db),
		repository.NewAnswerHistoryRepository(db),
		classes,
		sessions,
		users,
		publisher,
		10,
	)
	return &answerServiceFixture{svc: svc, db: db, publisher: publisher, users: users, classes: classes, sessions: sessions}
}

func isEvenNames() model.ChallengeNames {
	return model.ChallengeNames{Language: model.Java, Group: "Boolean Expressions", Challenge: "isEven"}
}

// 建立满足发布资格的环境：启用的班级、已加入的学生、
// 教师正在某个会话上观察该班
func (f *answerServiceFixture) enrollPublishableStudent(t *testing.T) *model.User {
	t.Helper()
	teacher := &model.User{Name: "t", Email: "t@example.com", Password: "x", Role: model.Teacher}
	require.NoError(t, f.users.Create(teacher))
	require.NoError(t, f.classes.Create(&model.Class{TeacherRef: teacher.ID, ClassCode: "class-a", Enabled: true}))

	student := &model.User{Name: "s", Email: "s@example.com", Password: "x", Role: model.Student, EnrolledClassCode: "class-a"}
	require.NoError(t, f.users.Create(student))

	require.NoError(t, f.sessions.UpsertUserSession(1, teacher.ID))
	require.NoError(t, f.sessions.SetActiveClassCode(1, teacher.ID, "class-a"))
	return student
}

func TestCheckAnswersReturnsOrderedResults(t *testing.T) {
	f := newAnswerServiceFixture(t)
	student := f.enrollPublishableStudent(t)

	results, err := f.svc.CheckAnswers(context.Background(), model.UserIdentity(student.ID), isEvenNames(), []string{"true", "true"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, model.Correct, results[0].Status())
	assert.Equal(t, model.Incorrect, results[1].Status())
	assert.Equal(t, "isEven(2)", results[0].Invocation)
	assert.Equal(t, "isEven(3)", results[1].Invocation)
}

func TestCheckAnswersPadsMissingResponses(t *testing.T) {
	f := newAnswerServiceFixture(t)

	results, err := f.svc.CheckAnswers(context.Background(), model.SessionIdentity(1), isEvenNames(), []string{"true"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, model.Correct, results[0].Status())
	assert.Equal(t, model.NotAnswered, results[1].Status())
}

func TestWhitespaceVariantsDoNotDoubleCount(t *testing.T) {
	f := newAnswerServiceFixture(t)
	identity := model.SessionIdentity(5)

	results, err := f.svc.CheckAnswers(context.Background(), identity, isEvenNames(), []string{" true ", " nope"})
	require.NoError(t, err)
	assert.Equal(t, model.Correct, results[0].Status())

	_, err = f.svc.CheckAnswers(context.Background(), identity, isEvenNames(), []string{"true", "nope "})
	require.NoError(t, err)

	var row model.SessionAnswerHistory
	md5 := isEvenNames().InvocationMd5("isEven(3)")
	require.NoError(t, f.db.Where("session_ref = ? AND md5 = ?", identity.SessionRef, md5).First(&row).Error)
	assert.Equal(t, 1, row.IncorrectAttempts)

	state, err := f.svc.ChallengeStateFor(identity, isEvenNames())
	require.NoError(t, err)
	assert.Equal(t, "nope", state.Answers["isEven(3)"])
}

func TestCheckAnswersUnknownChallenge(t *testing.T) {
	f := newAnswerServiceFixture(t)
	names := model.ChallengeNames{Language: model.Java, Group: "Boolean Expressions", Challenge: "missing"}
	_, err := f.svc.CheckAnswers(context.Background(), model.UserIdentity(1), names, nil)
	assert.ErrorIs(t, err, util.ErrChallengeNotFound)
}

func TestCheckAnswersRecordsAndPublishes(t *testing.T) {
	f := newAnswerServiceFixture(t)
	student := f.enrollPublishableStudent(t)
	identity := model.UserIdentity(student.ID)

	_, err := f.svc.CheckAnswers(context.Background(), identity, isEvenNames(), []string{"true", "false"})
	require.NoError(t, err)

	state, err := f.svc.ChallengeStateFor(identity, isEvenNames())
	require.NoError(t, err)
	assert.True(t, state.AllCorrect)
	assert.Equal(t, "true", state.Answers["isEven(2)"])

	require.Len(t, f.publisher.answerEvents, 2)
	for _, ev := range f.publisher.answerEvents {
		assert.Equal(t, student.ID, ev.UserID)
		assert.True(t, ev.Complete)
		assert.Equal(t, 2, ev.NumCorrect)
	}
	assert.Equal(t, TargetName("class-a", isEvenNames().Md5()), f.publisher.targets[0])
}

func TestCheckAnswersAnonymousRecordsWithoutPublishing(t *testing.T) {
	f := newAnswerServiceFixture(t)
	identity := model.SessionIdentity(42)

	_, err := f.svc.CheckAnswers(context.Background(), identity, isEvenNames(), []string{"true", "nope"})
	require.NoError(t, err)

	state, err := f.svc.ChallengeStateFor(identity, isEvenNames())
	require.NoError(t, err)
	assert.False(t, state.AllCorrect)
	assert.Equal(t, "nope", state.Answers["isEven(3)"])

	assert.Empty(t, f.publisher.answerEvents)
}

func TestCheckAnswersInvalidIdentitySkipsPersistence(t *testing.T) {
	f := newAnswerServiceFixture(t)

	results, err := f.svc.CheckAnswers(context.Background(), model.Identity{}, isEvenNames(), []string{"true", "false"})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	var count int64
	f.db.Model(&model.UserChallengeInfo{}).Count(&count)
	assert.Equal(t, int64(0), count)
	f.db.Model(&model.SessionChallengeInfo{}).Count(&count)
	assert.Equal(t, int64(0), count)
	assert.Empty(t, f.publisher.answerEvents)
}

func TestNoPublishWhenTeacherNotWatching(t *testing.T) {
	f := newAnswerServiceFixture(t)
	student := f.enrollPublishableStudent(t)

	// 教师停止观察后发布资格消失
	teacher, err := f.users.FindByEmail("t@example.com")
	require.NoError(t, err)
	require.NoError(t, f.sessions.SetActiveClassCode(1, teacher.ID, ""))

	_, err = f.svc.CheckAnswers(context.Background(), model.UserIdentity(student.ID), isEvenNames(), []string{"true", "false"})
	require.NoError(t, err)
	assert.Empty(t, f.publisher.answerEvents)
}

func TestSaveLikeDislike(t *testing.T) {
	f := newAnswerServiceFixture(t)
	student := f.enrollPublishableStudent(t)
	identity := model.UserIdentity(student.ID)

	assert.ErrorIs(t, f.svc.SaveLikeDislike(identity, isEvenNames(), 7), util.ErrInvalidLikeDislike)

	require.NoError(t, f.svc.SaveLikeDislike(identity, isEvenNames(), model.LikeSelected))

	state, err := f.svc.ChallengeStateFor(identity, isEvenNames())
	require.NoError(t, err)
	assert.Equal(t, model.LikeSelected, state.LikeDislike)

	require.Len(t, f.publisher.likeEvents, 1)
	assert.Equal(t, "👍", f.publisher.likeEvents[0].LikeDislike)
}

func TestClearChallengeAnswers(t *testing.T) {
	f := newAnswerServiceFixture(t)
	identity := model.SessionIdentity(3)

	_, err := f.svc.CheckAnswers(context.Background(), identity, isEvenNames(), []string{"true", "false"})
	require.NoError(t, err)

	require.NoError(t, f.svc.ClearChallengeAnswers(identity, isEvenNames()))

	state, err := f.svc.ChallengeStateFor(identity, isEvenNames())
	require.NoError(t, err)
	assert.False(t, state.AllCorrect)
	assert.Empty(t, state.Answers)

	var count int64
	f.db.Model(&model.SessionAnswerHistory{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestClearPublishesResetWhenObserved(t *testing.T) {
	f := newAnswerServiceFixture(t)
	student := f.enrollPublishableStudent(t)
	identity := model.UserIdentity(student.ID)

	_, err := f.svc.CheckAnswers(context.Background(), identity, isEvenNames(), []string{"true", "false"})
	require.NoError(t, err)

	f.publisher.mu.Lock()
	f.publisher.answerEvents = nil
	f.publisher.mu.Unlock()

	require.NoError(t, f.svc.ClearChallengeAnswers(identity, isEvenNames()))

	require.Len(t, f.publisher.answerEvents, 2)
	for _, ev := range f.publisher.answerEvents {
		assert.False(t, ev.Complete)
		assert.Equal(t, 0, ev.NumCorrect)
		assert.False(t, ev.History.Correct)
	}
}

func TestClearGroupAnswers(t *testing.T) {
	f := newAnswerServiceFixture(t)
	identity := model.SessionIdentity(3)

	_, err := f.svc.CheckAnswers(context.Background(), identity, isEvenNames(), []string{"true", "false"})
	require.NoError(t, err)
	oddNames := model.ChallengeNames{Language: model.Java, Group: "Boolean Expressions", Challenge: "isOdd"}
	_, err = f.svc.CheckAnswers(context.Background(), identity, oddNames, []string{"true"})
	require.NoError(t, err)

	require.NoError(t, f.svc.ClearGroupAnswers(identity, model.Java, "Boolean Expressions"))

	var count int64
	f.db.Model(&model.SessionChallengeInfo{}).Count(&count)
	assert.Equal(t, int64(0), count)
	f.db.Model(&model.SessionAnswerHistory{}).Count(&count)
	assert.Equal(t, int64(0), count)

	assert.ErrorIs(t, f.svc.ClearGroupAnswers(identity, model.Java, "missing"), util.ErrChallengeNotFound)
}
