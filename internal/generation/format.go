package generation

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/yiyun-api/internal/models"
)

// FormatInstruction renders a validated prompt as the chat message the bot
// turns into a plugin call. The interface name and every parameter are spelled out.
func FormatInstruction(p models.MusicPrompt) string {
	var sb strings.Builder
	switch v := p.(type) {
	case *models.BGMPrompt:
		fmt.Fprintf(&sb, "请使用%s接口生成背景音乐。\n\n参数要求：\n", models.InterfaceBGM)
		fmt.Fprintf(&sb, "- Mood: %s\n", joinList(v.Mood))
		fmt.Fprintf(&sb, "- Text: %s\n", v.Text)
		fmt.Fprintf(&sb, "- Genre: %s\n", joinList(v.Genre))
		fmt.Fprintf(&sb, "- Theme: %s\n", joinList(v.Theme))
		fmt.Fprintf(&sb, "- Duration: %d\n", v.Duration)
		fmt.Fprintf(&sb, "- Instrument: %s\n", joinList(v.Instrument))
	case *models.SongPrompt:
		fmt.Fprintf(&sb, "请使用%s接口生成有人声的歌曲。\n\n参数要求：\n", models.InterfaceSong)
		fmt.Fprintf(&sb, "- Mood: %s\n", v.Mood)
		fmt.Fprintf(&sb, "- Genre: %s\n", v.Genre)
		fmt.Fprintf(&sb, "- Timbre: %s\n", v.Timbre)
		fmt.Fprintf(&sb, "- Gender: %s\n", v.Gender)
		fmt.Fprintf(&sb, "- Prompt: %s\n", v.Prompt)
		fmt.Fprintf(&sb, "- Duration: %d\n", v.Duration)
	case *models.LyricsSongPrompt:
		fmt.Fprintf(&sb, "请使用%s接口根据歌词生成音乐。\n\n参数要求：\n", models.InterfaceLyricSong)
		fmt.Fprintf(&sb, "- Mood: %s\n", v.Mood)
		fmt.Fprintf(&sb, "- Genre: %s\n", v.Genre)
		fmt.Fprintf(&sb, "- Lyrics: %s\n", v.Lyrics)
		fmt.Fprintf(&sb, "- Timbre: %s\n", v.Timbre)
		fmt.Fprintf(&sb, "- Gender: %s\n", v.Gender)
		fmt.Fprintf(&sb, "- Duration: %d\n", v.Duration)
	default:
		return "请生成一首优美的背景音乐"
	}
	fmt.Fprintf(&sb, "\n请严格使用这些参数调用%s接口生成音乐。", p.Interface())
	return sb.String()
}

func joinList(values []string) string {
	return "[" + strings.Join(values, ", ") + "]"
}
