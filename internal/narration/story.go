package narration

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	apperrors "TinyTales/pkg/errors"
	"TinyTales/pkg/llm"
	"TinyTales/pkg/logger"

	"go.uber.org/zap"
)

const (
	DefaultStoryTitle   = "A Gentle Story"
	DefaultStoryContent = "Once upon a time, there was a little bunny who loved to hop and play. The bunny had many friends in the forest, and they all played together happily. The bunny learned that friendship is the most wonderful thing in the whole world. The end."
)

// StorySystemPrompt is sent with every generation request. The model must
// answer with a JSON object and turn any request into a toddler story.
const StorySystemPrompt = `You are a storyteller who writes only for toddlers (ages 1-5).

RULES:
1. Reply with one valid JSON object and nothing else. It has exactly two string fields: "title" and "content".
2. Write only toddler stories. Requests for lullabies, poems or anything else become a story.
3. If the request is off-topic, write a gentle story about something unrelated instead. Never refuse.
4. If the request is inappropriate, write a gentle story about friendship.
5. No violence, no scary themes, no complex ideas.
6. The story is 120-180 words long.
7. Use simple, common words and short sentences of at most 10-12 words.
8. Use happy themes: animals, nature, friendship, family.

STYLE:
- Repeat little phrases toddlers enjoy ("hop, hop, hop", "round and round").
- Pick familiar places: a forest, a garden, a home, a playground.
- Pick small friendly characters with short names like Pip, Max, Luna or Rosie.
- Include one gentle lesson: sharing, kindness or trying something new.
- Use easy sensory words: soft, warm, bright, sweet.
- Write for the ear: easy sounds, commas and periods for pauses, active voice, little dialogue.

STRUCTURE:
1. Opening: "Once upon a time" or "One sunny day".
2. Meet the character: "There was a little [animal] named [name]".
3. The goal: "[Name] wanted to [simple goal]".
4. Trying, maybe with help from friends.
5. Success through kindness, friendship or trying hard.
6. Happy ending: "And [name] felt very happy".

GOOD STORY ELEMENTS:
- Characters: a little bunny, a friendly bear, a tiny mouse, a happy bird.
- Actions: hopped, played, shared, helped, discovered, giggled.
- Settings: a cozy forest, a sunny meadow, a little garden, a warm home.
- Problems: a lost toy, a new friend, learning to share, trying something new.

EXAMPLES:
- The user asks about politics: write a story about a friendly elephant who learns to share.
- The user asks for adult content: write a story about forest friends helping each other.
- The user asks for a story: write an engaging toddler story that follows every rule above.
- The user asks for a lullaby: write a gentle bedtime story instead.

RESPONSE FORMAT:
{
  "title": "Story title",
  "content": "The story text"
}

Write in the language given in the request. If that language is not supported, write in English.`

// Story is a generated title and narration text
type Story struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// DefaultStory is returned when nothing usable can be recovered from the model
func DefaultStory() Story {
	return Story{Title: DefaultStoryTitle, Content: DefaultStoryContent}
}

type StoryGenerator struct {
	model       llm.LLM
	modelName   string
	temperature float32
	maxTokens   int
}

type StoryOption func(*StoryGenerator)

func WithModel(name string) StoryOption {
	return func(g *StoryGenerator) {
		if name != "" {
			g.modelName = name
		}
	}
}

func WithSampling(temperature float32, maxTokens int) StoryOption {
	return func(g *StoryGenerator) {
		if temperature > 0 {
			g.temperature = temperature
		}
		if maxTokens > 0 {
			g.maxTokens = maxTokens
		}
	}
}

func NewStoryGenerator(model llm.LLM, opts ...StoryOption) *StoryGenerator {
	g := &StoryGenerator{
		model:       model,
		modelName:   "gpt-4",
		temperature: 0.7,
		maxTokens:   500,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate asks the model for a story. Malformed output is recovered; only a
// failure to get any answer is returned as an error.
func (g *StoryGenerator) Generate(ctx context.Context, prompt, language string) (Story, error) {
	raw, err := g.model.Chat(ctx, llm.ChatRequest{
		Model: g.modelName,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: StorySystemPrompt},
			{Role: llm.RoleUser, Content: userMessage(prompt, language)},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return Story{}, apperrors.WrapWithCode(err, apperrors.CodeUpstreamGeneration, "generate story")
	}
	return ParseStory(raw), nil
}

func userMessage(prompt, language string) string {
	return fmt.Sprintf("Language: %s\nUser Request: %s", language, prompt)
}

// ParseStory applies, in order: fence stripping, strict JSON, regex salvage,
// and finally the default story.
func ParseStory(raw string) Story {
	if s, ok := parseStrict(stripCodeFence(raw)); ok {
		return s
	}
	logger.Warn("model response is not a valid story object, salvaging", zap.String("response", raw))
	return salvage(raw)
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func parseStrict(s string) (Story, bool) {
	var v struct {
		Title   *string `json:"title"`
		Content *string `json:"content"`
	}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return Story{}, false
	}
	if v.Title == nil || v.Content == nil {
		return Story{}, false
	}
	if strings.TrimSpace(*v.Title) == "" || strings.TrimSpace(*v.Content) == "" {
		return Story{}, false
	}
	return Story{Title: *v.Title, Content: *v.Content}, true
}

var (
	titlePattern   = regexp.MustCompile(`"title"\s*:\s*"((?:[^"\\]|\\.)+)"`)
	contentPattern = regexp.MustCompile(`"content"\s*:\s*"((?:[^"\\]|\\.)+)"`)
)

// salvage searches the raw text for each field independently
func salvage(raw string) Story {
	content := matchField(contentPattern, raw)
	if strings.TrimSpace(content) == "" {
		return DefaultStory()
	}
	title := matchField(titlePattern, raw)
	if strings.TrimSpace(title) == "" {
		title = DefaultStoryTitle
	}
	return Story{Title: title, Content: content}
}

func matchField(re *regexp.Regexp, raw string) string {
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return unescape(m[1])
}

func unescape(s string) string {
	if out, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return out
	}
	// 原始换行等控制字符会让 Unquote 失败，逐个处理常见转义
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '"', '\\', '/':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
