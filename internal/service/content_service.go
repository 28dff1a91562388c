package service

import (
	"fmt"
	"os"
	"readcode_backend/internal/model"
	"readcode_backend/internal/util"
	"readcode_backend/pkg/logger"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type contentChallenge struct {
	Name           string           `yaml:"name"`
	ReturnType     model.ReturnType `yaml:"returnType"`
	Invocations    []string         `yaml:"invocations"`
	CorrectAnswers []string         `yaml:"answers"`
}

type contentGroup struct {
	Name       string             `yaml:"name"`
	Challenges []contentChallenge `yaml:"challenges"`
}

type contentLanguage struct {
	Language model.LanguageName `yaml:"language"`
	Groups   []contentGroup     `yaml:"groups"`
}

type contentFile struct {
	Languages []contentLanguage `yaml:"languages"`
}

// ContentService 从 YAML 内容文件加载挑战定义并按名字三元组索引。
// Reload 整体换掉索引，读路径无锁争用之外的开销。
type ContentService struct {
	path string

	mu       sync.RWMutex
	byNames  map[model.ChallengeNames]*model.FunctionInfo
	byGroup  map[string][]*model.FunctionInfo
	byLang   map[model.LanguageName][]string
	numTotal int
}

func NewContentService(path string) (*ContentService, error) {
	s := &ContentService{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func groupKey(language model.LanguageName, group string) string {
	return string(language) + "|" + group
}

// Reload 重新解析内容文件。解析或校验失败时保留旧索引
func (s *ContentService) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read content file: %w", err)
	}

	var file contentFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse content file: %w", err)
	}

	byNames := make(map[model.ChallengeNames]*model.FunctionInfo)
	byGroup := make(map[string][]*model.FunctionInfo)
	byLang := make(map[model.LanguageName][]string)
	total := 0

	for _, lang := range file.Languages {
		if !lang.Language.Valid() {
			return fmt.Errorf("unknown language %q in content file", lang.Language)
		}
		for _, group := range lang.Groups {
			byLang[lang.Language] = append(byLang[lang.Language], group.Name)
			for _, ch := range group.Challenges {
				info := &model.FunctionInfo{
					Names: model.ChallengeNames{
						Language:  lang.Language,
						Group:     group.Name,
						Challenge: ch.Name,
					},
					Invocations:    ch.Invocations,
					CorrectAnswers: ch.CorrectAnswers,
					ReturnType:     ch.ReturnType,
				}
				if err := info.Validate(); err != nil {
					return err
				}
				if _, exists := byNames[info.Names]; exists {
					return fmt.Errorf("duplicate challenge %s/%s/%s", lang.Language, group.Name, ch.Name)
				}
				byNames[info.Names] = info
				key := groupKey(lang.Language, group.Name)
				byGroup[key] = append(byGroup[key], info)
				total++
			}
		}
	}

	s.mu.Lock()
	s.byNames = byNames
	s.byGroup = byGroup
	s.byLang = byLang
	s.numTotal = total
	s.mu.Unlock()

	logger.Log.Info("Challenge content loaded",
		zap.String("path", s.path), zap.Int("challenges", total))
	return nil
}

func (s *ContentService) FindFunctionInfo(names model.ChallengeNames) (*model.FunctionInfo, error) {
	s.mu.RLock()
	info, ok := s.byNames[names]
	s.mu.RUnlock()
	if !ok {
		return nil, util.ErrChallengeNotFound
	}
	return info, nil
}

// ChallengesInGroup 按内容文件中的声明顺序返回组内全部挑战
func (s *ContentService) ChallengesInGroup(language model.LanguageName, group string) []*model.FunctionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byGroup[groupKey(language, group)]
}

func (s *ContentService) GroupNames(language model.LanguageName) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byLang[language]
}

func (s *ContentService) NumChallenges() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.numTotal
}
