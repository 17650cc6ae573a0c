package prompt

import (
	"strings"

	"github.com/Conceptual-Machines/yiyun-api/internal/models"
)

var (
	instrumentalWords = []string{"纯音乐", "bgm", "器乐", "背景音乐", "无人声", "钢琴曲", "轻音乐"}
	vocalWords        = []string{"有人声", "演唱", "人声"}
	lyricsWords       = []string{"歌词", "歌曲"}

	// Signals read from the original text when no answer decides
	textLyricsWords = []string{"歌词", "演唱", "歌曲", "唱歌"}
)

// InferInterface picks the generation interface for a session.
// Answers are read in order: an instrumental choice selects gen_bgm, a vocal choice
// selects gen_song, and a later lyrics mention upgrades gen_song to lyrics_gen_song.
// Without a decisive answer the original text decides; the default is gen_song.
func InferInterface(sess *models.Session) models.Interface {
	var choice models.Interface
	for _, answer := range sess.ClarificationHistory {
		option := strings.ToLower(answer.SelectedOption)
		switch {
		case containsAny(option, instrumentalWords):
			choice = models.InterfaceBGM
		case containsAny(option, vocalWords):
			choice = models.InterfaceSong
		}
		if choice == models.InterfaceSong && containsAny(option, lyricsWords) {
			choice = models.InterfaceLyricSong
		}
	}
	if choice != "" {
		return choice
	}

	text := strings.ToLower(sess.OriginalInput.Text())
	switch {
	case containsAny(text, instrumentalWords):
		return models.InterfaceBGM
	case containsAny(text, textLyricsWords):
		return models.InterfaceLyricSong
	default:
		return models.InterfaceSong
	}
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
