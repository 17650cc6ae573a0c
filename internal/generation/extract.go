package generation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const maxErrorTextRunes = 200

var audioURLPattern = regexp.MustCompile(`(?i)https?://\S+(?:\.mp3|\.wav|\.m4a|music|audio)\S*`)

// words in an assistant reply that suggest the plugin ran
var successIndicators = []string{
	"音乐生成成功", "生成完成", "下载链接", "音乐已生成", "http://", "https://",
	"音频文件", "音乐文件", ".mp3", ".wav", ".m4a", "播放", "下载", "音乐链接",
	"音频链接", "生成的音乐", "您的音乐", "音乐作品",
}

var errorKeywords = []string{"错误", "失败", "error", "failed"}

// Extraction is what a finished conversation yielded
type Extraction struct {
	AudioURL   string
	Lyrics     string
	SawSuccess bool
	Errors     []string
}

// Extract scans assistant messages in order; the first one carrying an audio
// URL wins. Success indicators and error text are gathered across all of them.
func Extract(messages []Message) Extraction {
	var out Extraction
	for _, m := range messages {
		if m.Role != "assistant" || m.Content == "" {
			continue
		}
		if hasSuccessIndicator(m.Content) {
			out.SawSuccess = true
		}
		if e := errorText(m.Content); e != "" {
			out.Errors = append(out.Errors, e)
		}
		if audio, lyrics := ParseContent(m.Content); audio != "" {
			out.AudioURL, out.Lyrics = audio, lyrics
			return out
		}
	}

	// newest bare link
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role != "assistant" {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if isBareAudioURL(content) {
			out.AudioURL = content
			return out
		}
	}
	return out
}

// ParseContent pulls an audio URL and optional lyrics out of one reply, trying
// a structured plugin result, then a link on the first line, then a link anywhere.
func ParseContent(content string) (audioURL, lyrics string) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", ""
	}

	if obj, ok := jsonObject(trimmed); ok {
		if isPluginInvocation(obj) {
			return "", ""
		}
		if code, ok := numericCode(obj); ok {
			if code != 0 {
				return "", ""
			}
			return fromPluginData(obj["data"])
		}
	}

	lines := strings.Split(trimmed, "\n")
	first := strings.TrimSpace(lines[0])
	if looksLikeAudioURL(first) {
		return first, strings.TrimSpace(strings.Join(lines[1:], "\n"))
	}

	if match := audioURLPattern.FindString(trimmed); match != "" {
		rest := strings.TrimSpace(audioURLPattern.ReplaceAllString(trimmed, ""))
		return match, rest
	}
	return "", ""
}

func fromPluginData(raw any) (string, string) {
	data, ok := raw.(map[string]any)
	if !ok {
		return "", ""
	}
	if detail, ok := data["SongDetail"].(map[string]any); ok {
		if audio := firstString(detail, "AudioUrl"); audio != "" {
			return audio, firstString(detail, "Lyrics", "Captions")
		}
	}
	if audio := firstString(data, "music_url", "url", "download_url", "AudioUrl"); audio != "" {
		return audio, firstString(data, "lyrics", "lyric", "Lyrics")
	}
	return "", ""
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func jsonObject(s string) (map[string]any, bool) {
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// isPluginInvocation matches the function-call echo the bot emits before the plugin result.
// A named object that carries a code is a result and is parsed.
func isPluginInvocation(obj map[string]any) bool {
	name, ok := obj["name"].(string)
	if !ok || name == "" {
		return false
	}
	_, hasCode := obj["code"]
	return !hasCode
}

func numericCode(obj map[string]any) (int, bool) {
	switch v := obj["code"].(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

// looksLikeAudioURL accepts a line that is only a link with an audio hint
func looksLikeAudioURL(s string) bool {
	if !strings.HasPrefix(s, "http") || strings.ContainsAny(s, " \t") {
		return false
	}
	lower := strings.ToLower(s)
	for _, marker := range []string{".mp3", ".wav", ".m4a", "music", "audio"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func isBareAudioURL(s string) bool {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	lower := strings.ToLower(s)
	for _, marker := range []string{"music", "audio", ".mp3", ".wav"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func hasSuccessIndicator(content string) bool {
	lower := strings.ToLower(content)
	for _, indicator := range successIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// errorText returns the error a reply reports, or "" when it reports none
func errorText(content string) string {
	trimmed := strings.TrimSpace(content)
	if obj, ok := jsonObject(trimmed); ok {
		if code, ok := numericCode(obj); ok && code != 0 {
			msg, _ := obj["msg"].(string)
			if msg == "" {
				msg = "unknown error"
			}
			return fmt.Sprintf("code %d: %s", code, msg)
		}
	}
	lower := strings.ToLower(trimmed)
	for _, kw := range errorKeywords {
		if strings.Contains(lower, kw) {
			return truncate(trimmed, maxErrorTextRunes)
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
