package prompt

import (
	"testing"

	"github.com/Conceptual-Machines/yiyun-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSynthesisPrompt(t *testing.T) {
	builder, err := NewPromptBuilder(NewPromptLoader(), nil)
	require.NoError(t, err)

	sess := &models.Session{
		SessionID:     "s1",
		OriginalInput: models.UserInput{InputType: models.InputTypeText, TextContent: "一段关于星空的悲伤钢琴曲"},
		Analysis: &models.AnalysisResult{
			Understanding: "星空下的忧伤",
			MusicElements: map[string]interface{}{"mood": "忧郁", "instruments": []string{"钢琴"}},
		},
		ClarificationHistory: []models.ClarificationAnswer{
			{SessionID: "s1", QuestionID: "mood_q1", SelectedOption: "深度忧郁"},
			{SessionID: "s1", QuestionID: "purpose_q1", SelectedOption: "放松冥想"},
		},
	}

	out, err := builder.BuildSynthesisPrompt(sess, models.InterfaceBGM)
	require.NoError(t, err)

	assert.Contains(t, out, "用户原始输入: 一段关于星空的悲伤钢琴曲")
	assert.Contains(t, out, "原始理解: 星空下的忧伤")
	assert.Contains(t, out, `"instruments":["钢琴"]`)
	assert.Contains(t, out, "问题: mood_q1, 选择: 深度忧郁")
	assert.Contains(t, out, "问题: purpose_q1, 选择: 放松冥想")
	assert.Contains(t, out, "**用户偏好接口**: gen_bgm")
	assert.Contains(t, out, "dance/edm")
	assert.Contains(t, out, "R&B/Soul")
	assert.Contains(t, out, "Sentimental/Melancholic/Lonely、Inspirational/Hopeful")
}

func TestBuildSynthesisPromptWithoutAnalysis(t *testing.T) {
	builder, err := NewPromptBuilder(NewPromptLoader(), nil)
	require.NoError(t, err)

	out, err := builder.BuildSynthesisPrompt(&models.Session{
		OriginalInput: models.UserInput{InputType: models.InputTypeImage, ImageFilename: "x.png"},
	}, models.InterfaceSong)
	require.NoError(t, err)
	assert.Contains(t, out, "音乐元素: {}")
	assert.Contains(t, out, "gen_song")
}
