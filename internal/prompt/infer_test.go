package prompt

import (
	"testing"

	"github.com/Conceptual-Machines/yiyun-api/internal/models"
	"github.com/stretchr/testify/assert"
)

func sessionWith(text string, options ...string) *models.Session {
	sess := &models.Session{
		SessionID:     "s",
		OriginalInput: models.UserInput{InputType: models.InputTypeText, TextContent: text},
	}
	for i, opt := range options {
		sess.ClarificationHistory = append(sess.ClarificationHistory, models.ClarificationAnswer{
			SessionID: "s", QuestionID: string(rune('a' + i)), SelectedOption: opt,
		})
	}
	return sess
}

func TestInferInterface(t *testing.T) {
	tests := []struct {
		name string
		sess *models.Session
		want models.Interface
	}{
		{"instrumental answer", sessionWith("一首歌", "纯音乐/BGM"), models.InterfaceBGM},
		{"vocal answer", sessionWith("背景音乐", "有人声演唱"), models.InterfaceSong},
		{"vocal then lyrics", sessionWith("", "有人声演唱", "我有歌词"), models.InterfaceLyricSong},
		{"lyrics without vocal choice is ignored", sessionWith("", "我有歌词"), models.InterfaceSong},
		{"later answer wins", sessionWith("", "有人声演唱", "器乐演奏"), models.InterfaceBGM},
		{"text bgm, case-insensitive", sessionWith("做一段BGM"), models.InterfaceBGM},
		{"text piano piece", sessionWith("一段关于星空的悲伤钢琴曲", "深度忧郁", "钢琴独奏"), models.InterfaceBGM},
		{"text singing", sessionWith("我想唱歌"), models.InterfaceLyricSong},
		{"default", sessionWith("星空"), models.InterfaceSong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferInterface(tt.sess))
		})
	}
}

func TestInferInterfaceImageDefaultsToSong(t *testing.T) {
	sess := &models.Session{OriginalInput: models.UserInput{InputType: models.InputTypeImage}}
	assert.Equal(t, models.InterfaceSong, InferInterface(sess))
}
