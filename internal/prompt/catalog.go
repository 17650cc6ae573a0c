package prompt

import "strings"

// Field is one enumerated request field: its legal values plus a synonym map
// that rescues near misses (Chinese names, plural forms, other spellings).
type Field struct {
	Name     string
	Values   []string
	index    map[string]string
	synonyms map[string]string
}

func newField(name string, values []string, synonyms map[string]string) *Field {
	f := &Field{
		Name:     name,
		Values:   values,
		index:    make(map[string]string, len(values)),
		synonyms: make(map[string]string, len(synonyms)),
	}
	for _, v := range values {
		f.index[normalize(v)] = v
	}
	for from, to := range synonyms {
		canonical, ok := f.index[normalize(to)]
		if !ok {
			panic("synonym target " + to + " is not a legal " + name)
		}
		f.synonyms[normalize(from)] = canonical
	}
	return f
}

// Canonical returns the legal spelling of v, matching case-insensitively
func (f *Field) Canonical(v string) (string, bool) {
	c, ok := f.index[normalize(v)]
	return c, ok
}

// Resolve is Canonical followed by the synonym map
func (f *Field) Resolve(v string) (string, bool) {
	if c, ok := f.Canonical(v); ok {
		return c, true
	}
	c, ok := f.synonyms[normalize(v)]
	return c, ok
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// Catalog holds every enumerated field of the three request shapes
type Catalog struct {
	BGMMood       *Field
	BGMGenre      *Field
	BGMTheme      *Field
	BGMInstrument *Field
	SongMood      *Field
	SongGenre     *Field
	Timbre        *Field
	Gender        *Field
}

// DefaultCatalog is the catalog the music generation bot accepts
var DefaultCatalog = &Catalog{
	BGMMood: newField("bgm mood", []string{
		"positive", "uplifting", "energetic", "happy", "bright", "optimistic", "hopeful", "cool",
		"dreamy", "fun", "light", "powerful", "calm", "confident", "joyful", "dramatic", "peaceful",
		"playful", "soft", "groovy", "reflective", "easy", "relaxed", "lively", "smooth", "romantic",
		"intense", "elegant", "mellow", "emotional", "sentimental", "cheerful", "contemplative",
	}, map[string]string{
		"sad": "emotional", "sorrow": "emotional", "melancholic": "sentimental",
		"melancholy": "sentimental", "lonely": "sentimental", "nostalgic": "reflective",
		"chill": "calm", "relaxing": "relaxed", "excited": "energetic", "neutral": "calm",
		"warm": "mellow", "mysterious": "dreamy", "epic": "dramatic", "inspiring": "uplifting",
		"悲伤": "sentimental", "忧郁": "sentimental", "忧伤": "sentimental", "伤感": "sentimental",
		"快乐": "happy", "愉快": "happy", "开心": "happy", "欢快": "cheerful",
		"平静": "peaceful", "宁静": "peaceful", "安静": "calm", "放松": "relaxed", "舒缓": "soft",
		"激昂": "energetic", "兴奋": "energetic", "浪漫": "romantic", "温暖": "mellow",
		"怀旧": "reflective", "怀念": "reflective", "神秘": "dreamy", "梦幻": "dreamy",
		"励志": "uplifting", "孤独": "contemplative", "中性": "calm", "优雅": "elegant",
	}),
	BGMGenre: newField("bgm genre", []string{
		"corporate", "dance/edm", "orchestral", "chill out", "rock", "hip hop", "folk", "funk",
		"ambient", "holiday", "jazz", "kids", "world", "travel", "commercial", "advertising",
		"driving", "cinematic", "upbeat", "epic", "inspiring", "business", "video game", "dark",
		"pop", "trailer", "modern", "electronic", "documentary", "soundtrack", "fashion", "acoustic",
		"movie", "tv", "high tech", "industrial",
	}, map[string]string{
		"classical": "orchestral", "symphonic": "orchestral", "edm": "dance/edm", "dance": "dance/edm",
		"chillout": "chill out", "chill": "chill out", "techno": "electronic", "hip-hop": "hip hop", "hiphop": "hip hop",
		"new age": "ambient", "lofi": "chill out", "lo-fi": "chill out", "game": "video game",
		"古典": "orchestral", "交响": "orchestral", "电子": "electronic", "流行": "pop", "摇滚": "rock",
		"爵士": "jazz", "民谣": "folk", "轻音乐": "ambient", "氛围音乐": "ambient", "氛围": "ambient",
		"电影": "cinematic", "史诗": "epic", "原声": "acoustic", "放克": "funk",
	}),
	BGMTheme: newField("bgm theme", []string{
		"inspirational", "motivational", "achievement", "discovery", "every day", "love",
		"technology", "lifestyle", "journey", "meditation", "drama", "children", "hope", "fantasy",
		"holiday", "health", "family", "real estate", "media", "kids", "science", "education",
		"progress", "world", "vacation", "training", "christmas", "sales",
	}, map[string]string{
		"everyday": "every day", "daily": "every day", "relaxation": "meditation", "relax": "meditation",
		"nature": "discovery", "travel": "journey", "romance": "love", "study": "education",
		"冥想": "meditation", "放松": "meditation", "爱情": "love", "旅行": "journey", "希望": "hope",
		"梦想": "fantasy", "奇幻": "fantasy", "学习": "education", "工作": "every day", "家庭": "family",
		"科技": "technology", "健康": "health", "自然": "discovery", "星空": "fantasy",
	}),
	BGMInstrument: newField("bgm instrument", []string{
		"piano", "drums", "guitar", "percussion", "synth", "electric guitar", "acoustic guitar",
		"bass guitar", "brass", "violin", "cello", "flute", "organ", "trumpet", "ukulele",
		"saxophone", "double bass", "harp", "glockenspiel", "synthesizer", "keyboard", "marimba",
		"bass", "banjo", "strings",
	}, map[string]string{
		"drum": "drums", "violins": "violin", "string": "strings", "sax": "saxophone",
		"guitars": "guitar", "electric piano": "keyboard", "orchestra": "strings",
		"钢琴": "piano", "钢琴独奏": "piano", "吉他": "guitar", "电吉他": "electric guitar",
		"木吉他": "acoustic guitar", "吉他弹唱": "acoustic guitar", "贝斯": "bass guitar",
		"小提琴": "violin", "大提琴": "cello", "低音提琴": "double bass", "长笛": "flute",
		"鼓": "drums", "架子鼓": "drums", "打击乐": "percussion", "合成器": "synthesizer",
		"电子合成": "synth", "电子混合": "synth", "电子钢琴": "keyboard", "键盘": "keyboard",
		"弦乐": "strings", "弦乐组合": "strings", "交响乐团": "strings", "管乐": "brass",
		"萨克斯": "saxophone", "小号": "trumpet", "竖琴": "harp", "风琴": "organ", "管风琴": "organ",
		"尤克里里": "ukulele", "马林巴": "marimba", "班卓琴": "banjo", "钟琴": "glockenspiel",
	}),
	SongMood: newField("song mood", []string{
		"Happy", "Dynamic/Energetic", "Sentimental/Melancholic/Lonely", "Inspirational/Hopeful",
		"Nostalgic/Memory", "Excited", "Sorrow/Sad", "Chill", "Romantic",
	}, map[string]string{
		"dynamic": "Dynamic/Energetic", "energetic": "Dynamic/Energetic",
		"emotional": "Sentimental/Melancholic/Lonely", "sentimental": "Sentimental/Melancholic/Lonely", "melancholic": "Sentimental/Melancholic/Lonely",
		"lonely": "Sentimental/Melancholic/Lonely", "inspirational": "Inspirational/Hopeful",
		"hopeful": "Inspirational/Hopeful", "nostalgic": "Nostalgic/Memory", "memory": "Nostalgic/Memory",
		"sad": "Sorrow/Sad", "sorrow": "Sorrow/Sad", "calm": "Chill", "relaxed": "Chill",
		"peaceful": "Chill", "joyful": "Happy", "cheerful": "Happy",
		"快乐": "Happy", "愉快": "Happy", "开心": "Happy", "激昂": "Dynamic/Energetic",
		"悲伤": "Sorrow/Sad", "忧郁": "Sentimental/Melancholic/Lonely", "孤独": "Sentimental/Melancholic/Lonely",
		"励志": "Inspirational/Hopeful", "怀旧": "Nostalgic/Memory", "怀念": "Nostalgic/Memory",
		"兴奋": "Excited", "平静": "Chill", "放松": "Chill", "浪漫": "Romantic",
	}),
	SongGenre: newField("song genre", []string{
		"Folk", "Pop", "Rock", "Chinese Style", "Hip Hop/Rap", "R&B/Soul", "Punk", "Electronic",
		"Jazz", "Reggae", "DJ",
	}, map[string]string{
		"hip hop": "Hip Hop/Rap", "hip-hop": "Hip Hop/Rap", "rap": "Hip Hop/Rap", "r&b": "R&B/Soul",
		"rnb": "R&B/Soul", "soul": "R&B/Soul", "chinese": "Chinese Style", "edm": "Electronic",
		"dance": "DJ", "ballad": "Pop",
		"流行": "Pop", "摇滚": "Rock", "民谣": "Folk", "中国风": "Chinese Style", "古风": "Chinese Style",
		"说唱": "Hip Hop/Rap", "电子": "Electronic", "爵士": "Jazz", "朋克": "Punk", "雷鬼": "Reggae",
	}),
	Timbre: newField("timbre", []string{
		"Warm", "Bright", "Husky", "Electrified voice", "Sweet", "Cute", "Loud and sonorous",
		"Powerful", "Sexy/Lazy",
	}, map[string]string{
		"electrified": "Electrified voice", "electronic": "Electrified voice", "loud": "Loud and sonorous",
		"sonorous": "Loud and sonorous", "sexy": "Sexy/Lazy", "lazy": "Sexy/Lazy",
		"温暖": "Warm", "明亮": "Bright", "沙哑": "Husky", "甜美": "Sweet", "可爱": "Cute",
		"有力": "Powerful", "浑厚": "Loud and sonorous", "慵懒": "Sexy/Lazy",
	}),
	Gender: newField("gender", []string{"Male", "Female"}, map[string]string{
		"man": "Male", "boy": "Male", "男": "Male", "男声": "Male", "男性": "Male",
		"woman": "Female", "girl": "Female", "女": "Female", "女声": "Female", "女性": "Female",
	}),
}

// TemplateData exposes the legal value lists to the synthesis prompt template
type TemplateData struct {
	BGMMoods       []string
	BGMGenres      []string
	BGMThemes      []string
	BGMInstruments []string
	SongMoods      []string
	SongGenres     []string
	Timbres        []string
	Genders        []string
}

// TemplateData returns the value lists for the prompt template
func (c *Catalog) TemplateData() TemplateData {
	return TemplateData{
		BGMMoods:       c.BGMMood.Values,
		BGMGenres:      c.BGMGenre.Values,
		BGMThemes:      c.BGMTheme.Values,
		BGMInstruments: c.BGMInstrument.Values,
		SongMoods:      c.SongMood.Values,
		SongGenres:     c.SongGenre.Values,
		Timbres:        c.Timbre.Values,
		Genders:        c.Gender.Values,
	}
}
