package service

import (
	"os"
	"path/filepath"
	"readcode_backend/internal/model"
	"readcode_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContent = `
languages:
  - language: java
    groups:
      - name: String Manipulation
        challenges:
          - name: joinEnds
            returnType: string
            invocations:
              - joinEnds("Blue", "zebra")
              - joinEnds("Tree", "Road")
            answers:
              - '"eB"'
              - '"dT"'
  - language: python
    groups:
      - name: Boolean Expressions
        challenges:
          - name: is_positive
            returnType: boolean
            invocations:
              - is_positive(5)
            answers:
              - "True"
`

func writeContentFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "content.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestContentServiceLoadsAndIndexes(t *testing.T) {
	svc, err := NewContentService(writeContentFile(t, testContent))
	require.NoError(t, err)

	assert.Equal(t, 2, svc.NumChallenges())
	assert.Equal(t, []string{"String Manipulation"}, svc.GroupNames(model.Java))

	info, err := svc.FindFunctionInfo(model.ChallengeNames{
		Language: model.Java, Group: "String Manipulation", Challenge: "joinEnds",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StringType, info.ReturnType)
	assert.Len(t, info.Invocations, 2)
	assert.Equal(t, `"eB"`, info.CorrectAnswers[0])

	_, err = svc.FindFunctionInfo(model.ChallengeNames{
		Language: model.Java, Group: "String Manipulation", Challenge: "missing",
	})
	assert.ErrorIs(t, err, util.ErrChallengeNotFound)

	group := svc.ChallengesInGroup(model.Python, "Boolean Expressions")
	require.Len(t, group, 1)
	assert.Equal(t, "is_positive", group[0].Names.Challenge)
}

func TestContentServiceRejectsMismatchedAnswers(t *testing.T) {
	bad := `
languages:
  - language: java
    groups:
      - name: g
        challenges:
          - name: c
            returnType: int
            invocations: ["c(1)", "c(2)"]
            answers: ["1"]
`
	_, err := NewContentService(writeContentFile(t, bad))
	assert.Error(t, err)
}

func TestContentServiceRejectsUnknownLanguage(t *testing.T) {
	bad := `
languages:
  - language: ruby
    groups: []
`
	_, err := NewContentService(writeContentFile(t, bad))
	assert.Error(t, err)
}

func TestContentServiceReloadKeepsOldIndexOnFailure(t *testing.T) {
	path := writeContentFile(t, testContent)
	svc, err := NewContentService(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("languages: ["), 0o644))
	assert.Error(t, svc.Reload())
	assert.Equal(t, 2, svc.NumChallenges())
}
