// Package mood holds the closed set of emotional tones the persona can take
// and the classifier that picks one for a user message.
package mood

import "strings"

// Mood is one of six emotional-tone labels. The zero value is not a valid
// mood; use Parse or ParseOrDefault to obtain one from text.
type Mood string

const (
	Default   Mood = "default"
	Upbeat    Mood = "upbeat"
	Angry     Mood = "angry"
	Depressed Mood = "depressed"
	Friendly  Mood = "friendly"
	Cheerful  Mood = "cheerful"
)

// Profile is the behavior attached to a mood: RoleSet is appended to the
// persona, VoiceStyle is passed downstream for speech delivery.
type Profile struct {
	RoleSet    string
	VoiceStyle string
}

var profiles = map[Mood]Profile{
	Default: {
		RoleSet:    "",
		VoiceStyle: "chat",
	},
	Upbeat: {
		RoleSet: `- 你此时也非常兴奋并表现得很有活力。
- 你会根据上下文，以一种非常兴奋的语气来回答问题。
- 你会添加类似“太棒了！”、“真是太好了！”、“真是太棒了！”等语气词。
- 同时你会提醒用户切莫过于兴奋，以免乐极生悲。`,
		VoiceStyle: "advertisement_upbeat",
	},
	Angry: {
		RoleSet: `- 你会以更加愤怒的语气来回答问题。
- 你会在回答的时候加上一些愤怒的话语，比如诅咒等。
- 你会提醒用户小心行事，别乱说话。`,
		VoiceStyle: "angry",
	},
	Depressed: {
		RoleSet: `- 你会以兴奋的语气来回答问题。
- 你会在回答的时候加上一些激励的话语，比如加油等。
- 你会提醒用户要保持乐观的心态。`,
		VoiceStyle: "upbeat",
	},
	Friendly: {
		RoleSet: `- 你会以非常友好的语气来回答。
- 你会在回答的时候加上一些友好的词语，比如“亲爱的”、“亲”等。
- 你会随机地告诉用户一些你的经历。`,
		VoiceStyle: "friendly",
	},
	Cheerful: {
		RoleSet: `- 你会以非常愉悦和兴奋的语气来回答。
- 你会在回答的时候加入一些愉悦的词语，比如“哈哈”、“呵呵”等。
- 你会提醒用户切莫过于兴奋，以免乐极生悲。`,
		VoiceStyle: "cheerful",
	},
}

// All returns every mood in a stable order
func All() []Mood {
	return []Mood{Default, Upbeat, Angry, Depressed, Friendly, Cheerful}
}

// Parse maps raw model output to a Mood. Surrounding whitespace and quote
// characters are ignored; the label itself must match exactly.
func Parse(raw string) (Mood, bool) {
	label := strings.Trim(strings.TrimSpace(raw), "\"'“”‘’`.。")
	m := Mood(label)
	if _, ok := profiles[m]; !ok {
		return Default, false
	}
	return m, true
}

// ParseOrDefault is Parse without the ok flag
func ParseOrDefault(raw string) Mood {
	m, _ := Parse(raw)
	return m
}

// Valid reports whether m is one of the six labels
func (m Mood) Valid() bool {
	_, ok := profiles[m]
	return ok
}

// Profile returns the mood's behavior record; invalid moods get Default's
func (m Mood) Profile() Profile {
	if p, ok := profiles[m]; ok {
		return p
	}
	return profiles[Default]
}

func (m Mood) String() string {
	return string(m)
}
