package analysis

import (
	"fmt"
	"testing"

	"github.com/Conceptual-Machines/yiyun-api/internal/models"
	"github.com/Conceptual-Machines/yiyun-api/pkg/embedded"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTablesLoad(t *testing.T) {
	tables := DefaultTables()
	require.NotNil(t, tables)
	assert.Len(t, tables.Emotions.Families, 10)
	assert.Len(t, tables.Text.Moods, 4)
	assert.Len(t, tables.Text.Styles, 7)
}

func TestLoadTablesRejectsBadOptionCount(t *testing.T) {
	bad := []byte(`{"default_family":"平静","default_options":["a","b"],"blend_ratio":0.8,"blend_filler":"x",
		"families":[{"name":"平静","options":["a","b","c","d"]}]}`)
	_, err := LoadTables(bad, embedded.TextAnalysisJSON, embedded.QuestionsJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_options")
}

func TestLoadTablesRejectsUnknownBlendFamily(t *testing.T) {
	bad := []byte(`{"default_family":"平静","default_options":["a","b","c","d"],"blend_ratio":0.8,"blend_filler":"x",
		"families":[{"name":"平静","options":["a","b","c","d"]}],
		"blends":[{"families":["平静","悲伤"],"options":["a","b","c","d"]}]}`)
	_, err := LoadTables(bad, embedded.TextAnalysisJSON, embedded.QuestionsJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "悲伤")
}

func TestDetectMood(t *testing.T) {
	tables := DefaultTables()
	tests := []struct {
		text string
		want string
	}{
		{"我今天哭了，很伤心", "忧郁"},
		{"开心的周末", "愉快"},
		{"安静的夜晚，放松一下", "平静"},
		{"充满力量和热情", "激昂"},
		{"一段旋律", "中性"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, tables.DetectMood(tt.text))
		})
	}
}

func TestDetectMoodTieGoesToEarlierRule(t *testing.T) {
	// "激动" is both a 愉快 and a 激昂 keyword
	assert.Equal(t, "愉快", DefaultTables().DetectMood("激动"))
}

func TestDetectStyle(t *testing.T) {
	tables := DefaultTables()
	assert.Equal(t, "古典", tables.DetectStyle("一首交响曲"))
	assert.Equal(t, "电子", tables.DetectStyle("techno 舞曲"))
	assert.Equal(t, "民谣", tables.DetectStyle("吉他弹唱"))
	assert.Equal(t, "轻音乐", tables.DetectStyle("一段旋律"))
}

func TestDetectInstruments(t *testing.T) {
	tables := DefaultTables()
	assert.Equal(t, []string{"钢琴"}, tables.DetectInstruments("钢琴和吉他", "愉快"))
	assert.Equal(t, []string{"小提琴", "弦乐"}, tables.DetectInstruments("大提琴", "中性"))
	assert.Equal(t, []string{"吉他", "鼓"}, tables.DetectInstruments("一段旋律", "激昂"))
	assert.Equal(t, []string{"钢琴"}, tables.DetectInstruments("一段旋律", "中性"))
}

func TestDetectTempo(t *testing.T) {
	tables := DefaultTables()
	assert.Equal(t, "慢", tables.DetectTempo("舒缓的", "激昂"))
	assert.Equal(t, "快", tables.DetectTempo("快速的", "平静"))
	assert.Equal(t, "慢", tables.DetectTempo("一段旋律", "忧郁"))
	assert.Equal(t, "中", tables.DetectTempo("一段旋律", "中性"))
}

func TestScoreEmotions(t *testing.T) {
	tables := DefaultTables()

	t.Run("keyword hits in table order", func(t *testing.T) {
		scores := tables.ScoreEmotions("悲伤的回忆", "")
		assert.Equal(t, []EmotionScore{{"悲伤", 1}, {"怀旧", 1}}, scores)
	})

	t.Run("mood bonus adds to existing family", func(t *testing.T) {
		scores := tables.ScoreEmotions("悲伤", "悲伤")
		assert.Equal(t, []EmotionScore{{"悲伤", 3}}, scores)
	})

	t.Run("bonus-only families come after keyword families", func(t *testing.T) {
		scores := tables.ScoreEmotions("快乐", "浪漫")
		assert.Equal(t, []EmotionScore{{"快乐", 1}, {"浪漫", 2}}, scores)
	})

	t.Run("nothing detected defaults to calm", func(t *testing.T) {
		assert.Equal(t, []EmotionScore{{"平静", 1}}, tables.ScoreEmotions("星空", ""))
	})
}

func TestEmotionOptions(t *testing.T) {
	tables := DefaultTables()

	t.Run("single family", func(t *testing.T) {
		options := tables.EmotionOptions([]EmotionScore{{"悲伤", 1}})
		assert.Equal(t, []string{"深度忧郁", "轻柔忧伤", "怀念思念", "平静接受"}, options)
	})

	t.Run("known blend", func(t *testing.T) {
		options := tables.EmotionOptions([]EmotionScore{{"悲伤", 1}, {"怀旧", 1}})
		assert.Equal(t, []string{"怀念忧伤", "追忆往昔", "岁月如歌", "思念绵绵"}, options)
	})

	t.Run("weaker family below ratio is ignored", func(t *testing.T) {
		options := tables.EmotionOptions([]EmotionScore{{"悲伤", 5}, {"怀旧", 1}})
		assert.Equal(t, []string{"深度忧郁", "轻柔忧伤", "怀念思念", "平静接受"}, options)
	})

	t.Run("unknown combination uses representatives and filler", func(t *testing.T) {
		options := tables.EmotionOptions([]EmotionScore{{"快乐", 1}, {"神秘", 1}})
		assert.Equal(t, []string{"欢快活泼", "神秘莫测", "情感复合", "情感复合"}, options)
	})

	t.Run("at most three representatives", func(t *testing.T) {
		options := tables.EmotionOptions([]EmotionScore{{"快乐", 1}, {"神秘", 1}, {"焦虑", 1}, {"孤独", 1}})
		assert.Equal(t, []string{"欢快活泼", "神秘莫测", "内心挣扎", "情感复合"}, options)
	})
}

func TestQuestionsForSadPiano(t *testing.T) {
	tables := DefaultTables()
	result := tables.LocalAnalysis(models.UserInput{
		InputType:   models.InputTypeText,
		TextContent: "一段关于星空的悲伤钢琴曲",
	}, "")

	assert.Equal(t, "忧郁", result.MusicElements["mood"])
	assert.Equal(t, []string{"钢琴"}, result.MusicElements["instruments"])
	assert.Equal(t, "慢", result.MusicElements["tempo"])
	assert.True(t, result.NeedsClarification)
	assert.Contains(t, result.Understanding, "一段关于星空的悲伤钢琴曲")

	require.Len(t, result.ClarificationQuestions, 4)
	ids := []string{}
	for _, q := range result.ClarificationQuestions {
		ids = append(ids, q.QuestionID)
		assert.Len(t, q.Options, 4)
	}
	assert.Equal(t, []string{"mood_q1", "instrument_q1", "purpose_q1", "tempo_q1"}, ids)
	assert.Equal(t, []string{"深度忧郁", "轻柔忧伤", "怀念思念", "平静接受"}, result.ClarificationQuestions[0].Options)
	assert.Equal(t, []string{"极慢深沉", "缓慢抒情", "中等节奏", "稍快一些"}, result.ClarificationQuestions[3].Options)
}

func TestQuestionsInstrumentSetFollowsStyle(t *testing.T) {
	tables := DefaultTables()

	classical := tables.Questions("", map[string]interface{}{"style": "古典"})
	assert.Equal(t, []string{"钢琴独奏", "小提琴", "大提琴", "交响乐团"}, classical[1].Options)

	electronic := tables.Questions("", map[string]interface{}{"style": "现代电子"})
	assert.Equal(t, []string{"电子合成", "电子钢琴", "合成器", "电子混合"}, electronic[1].Options)

	other := tables.Questions("", map[string]interface{}{"style": []interface{}{"流行"}})
	assert.Equal(t, []string{"钢琴独奏", "吉他弹唱", "电子合成", "弦乐组合"}, other[1].Options)
}

func TestQuestionsSkipTempoWhenTextMentionsIt(t *testing.T) {
	questions := DefaultTables().Questions("快节奏的舞曲", map[string]interface{}{"tempo": "快"})
	require.Len(t, questions, 3)
	assert.Equal(t, "purpose_q1", questions[2].QuestionID)
}

func TestLocalAnalysisImage(t *testing.T) {
	result := DefaultTables().LocalAnalysis(models.UserInput{InputType: models.InputTypeImage}, "")
	assert.Equal(t, "氛围音乐", result.MusicElements["style"])
	assert.Equal(t, "宁静", result.MusicElements["mood"])
	assert.Equal(t, []string{"钢琴", "弦乐"}, result.MusicElements["instruments"])
	assert.Equal(t, "基于您上传的图片，我将为您创作一首音乐作品。", result.Understanding)
	assert.Len(t, result.ClarificationQuestions, 4)
}

func TestQuestionsAlwaysWellFormed(t *testing.T) {
	tables := DefaultTables()
	inputs := []string{"", "悲伤的回忆", "快乐 励志 积极", "神秘的夜 宁静", "愤怒 焦虑 紧张",
		"一个人 孤独 悲伤", "慢慢的钢琴", "a quick rock song", "浪漫 怀念 往昔 爱情"}
	for i, text := range inputs {
		t.Run(fmt.Sprintf("input_%d", i), func(t *testing.T) {
			result := tables.LocalAnalysis(models.UserInput{InputType: models.InputTypeText, TextContent: text}, "")
			require.GreaterOrEqual(t, len(result.ClarificationQuestions), 2)
			require.LessOrEqual(t, len(result.ClarificationQuestions), 4)
			seen := map[string]bool{}
			for _, q := range result.ClarificationQuestions {
				assert.Len(t, q.Options, 4)
				assert.False(t, seen[q.QuestionID], "duplicate id %s", q.QuestionID)
				seen[q.QuestionID] = true
			}
		})
	}
}
