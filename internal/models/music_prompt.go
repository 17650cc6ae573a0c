package models

import "encoding/json"

// Interface names the music-generation endpoint a prompt targets
type Interface string

const (
	InterfaceBGM       Interface = "gen_bgm"         // instrumental background music
	InterfaceSong      Interface = "gen_song"        // short vocal song from a prompt
	InterfaceLyricSong Interface = "lyrics_gen_song" // vocal song from explicit lyrics
)

// DefaultDuration is used whenever a prompt carries no usable duration (seconds)
const DefaultDuration = 30

// MusicPrompt is a closed sum over the three generation request shapes.
// Only BGMPrompt, SongPrompt and LyricsSongPrompt implement it.
type MusicPrompt interface {
	Interface() Interface
	DurationSeconds() int
	Clone() MusicPrompt
	isMusicPrompt()
}

// BGMPrompt is the instrumental request shape (lower-case enumerated values)
type BGMPrompt struct {
	Mood       []string `json:"mood"`
	Text       string   `json:"text"`
	Genre      []string `json:"genre"`
	Theme      []string `json:"theme"`
	Instrument []string `json:"instrument"`
	Duration   int      `json:"duration"`
}

// SongPrompt is the short vocal request shape
type SongPrompt struct {
	Mood     string `json:"mood"`
	Genre    string `json:"genre"`
	Timbre   string `json:"timbre"`
	Gender   string `json:"gender"`
	Prompt   string `json:"prompt"`
	Duration int    `json:"duration"`
}

// LyricsSongPrompt is the vocal request shape driven by explicit lyrics
type LyricsSongPrompt struct {
	Mood     string `json:"mood"`
	Genre    string `json:"genre"`
	Lyrics   string `json:"lyrics"`
	Timbre   string `json:"timbre"`
	Gender   string `json:"gender"`
	Duration int    `json:"duration"`
}

func (*BGMPrompt) Interface() Interface        { return InterfaceBGM }
func (*SongPrompt) Interface() Interface       { return InterfaceSong }
func (*LyricsSongPrompt) Interface() Interface { return InterfaceLyricSong }

func (p *BGMPrompt) DurationSeconds() int        { return p.Duration }
func (p *SongPrompt) DurationSeconds() int       { return p.Duration }
func (p *LyricsSongPrompt) DurationSeconds() int { return p.Duration }

func (*BGMPrompt) isMusicPrompt()        {}
func (*SongPrompt) isMusicPrompt()       {}
func (*LyricsSongPrompt) isMusicPrompt() {}

func (p *BGMPrompt) Clone() MusicPrompt {
	out := *p
	out.Mood = append([]string(nil), p.Mood...)
	out.Genre = append([]string(nil), p.Genre...)
	out.Theme = append([]string(nil), p.Theme...)
	out.Instrument = append([]string(nil), p.Instrument...)
	return &out
}

func (p *SongPrompt) Clone() MusicPrompt {
	out := *p
	return &out
}

func (p *LyricsSongPrompt) Clone() MusicPrompt {
	out := *p
	return &out
}

// MarshalJSON tags the payload with its interface name
func (p *BGMPrompt) MarshalJSON() ([]byte, error) {
	type alias BGMPrompt
	return json.Marshal(struct {
		Interface Interface `json:"interface"`
		*alias
	}{InterfaceBGM, (*alias)(p)})
}

// MarshalJSON tags the payload with its interface name
func (p *SongPrompt) MarshalJSON() ([]byte, error) {
	type alias SongPrompt
	return json.Marshal(struct {
		Interface Interface `json:"interface"`
		*alias
	}{InterfaceSong, (*alias)(p)})
}

// MarshalJSON tags the payload with its interface name
func (p *LyricsSongPrompt) MarshalJSON() ([]byte, error) {
	type alias LyricsSongPrompt
	return json.Marshal(struct {
		Interface Interface `json:"interface"`
		*alias
	}{InterfaceLyricSong, (*alias)(p)})
}

// UserMusicParams are the parameters a client may pass directly to skip clarification
type UserMusicParams struct {
	MusicDescription string      `json:"music_description"`
	Duration         int         `json:"duration"`
	VoiceType        string      `json:"voice_type"`
	VoiceParams      VoiceParams `json:"voice_params"`
	BGMParams        BGMParams   `json:"bgm_params"`
}

// VoiceParams configure the singer for vocal requests
type VoiceParams struct {
	Gender string `json:"gender"`
	Timbre string `json:"timbre"`
}

// BGMParams configure instrumental requests
type BGMParams struct {
	Instruments []string `json:"instruments"`
}

// VoiceTypeVocal is the voice_type value the web client sends for sung music
const VoiceTypeVocal = "有人声演唱"

// IsVocal reports whether the client asked for sung music
func (p UserMusicParams) IsVocal() bool {
	switch p.VoiceType {
	case VoiceTypeVocal, "vocal", "Vocal", "song":
		return true
	default:
		return false
	}
}
