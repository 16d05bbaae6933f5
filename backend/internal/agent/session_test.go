package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortune-master/backend/internal/adapter"
	"fortune-master/backend/internal/mood"
	"fortune-master/backend/internal/state"
	"fortune-master/backend/internal/tools"
	apperrors "fortune-master/backend/pkg/errors"
)

// stubCompleter plays the classification model
type stubCompleter struct {
	out string
	err error
}

func (s *stubCompleter) Complete(ctx context.Context, systemPrompt string, messages []adapter.Message) (string, error) {
	return s.out, s.err
}

func newTestSession(t *testing.T, label string, llm LLM, ts ...tools.Tool) *Session {
	t.Helper()
	classifier := mood.NewClassifier(&stubCompleter{out: label})
	return NewSession("test-session", classifier, NewOrchestrator(llm, testAgentConfig()), newTestRegistry(t, ts...), nil)
}

func TestSession_CheerfulScenario(t *testing.T) {
	llm := scripted(answer("哈哈，好事将近！"))
	s := newTestSession(t, "cheerful", llm)

	res := s.Run(context.Background(), "我今天好开心")
	require.Nil(t, res.Error)
	require.NotNil(t, res.Final)
	assert.NotEmpty(t, res.Final.Text)
	assert.Equal(t, mood.Cheerful, res.Mood)
	assert.Equal(t, "cheerful", res.VoiceStyle)
	assert.Equal(t, "test-session", res.SessionID)

	system := llm.request(0)[0].Content
	assert.Contains(t, system, mood.Cheerful.Profile().RoleSet)
}

func TestSession_AngryScenario(t *testing.T) {
	llm := scripted(answer("放肆！"))
	s := newTestSession(t, "angry", llm)

	res := s.Run(context.Background(), "你这个老骗子")
	require.NotNil(t, res.Final)
	assert.Equal(t, mood.Angry, res.Mood)
	assert.Contains(t, llm.request(0)[0].Content, mood.Angry.Profile().RoleSet)
}

func TestSession_UnknownLabelFallsBackToDefault(t *testing.T) {
	llm := scripted(answer("老夫在此"))
	s := newTestSession(t, "ecstatic", llm)

	res := s.Run(context.Background(), "hello")
	require.NotNil(t, res.Final)
	assert.Equal(t, mood.Default, res.Mood)
	assert.Equal(t, "chat", res.VoiceStyle)
}

func TestSession_ClassifierFailureFallsBackToDefault(t *testing.T) {
	classifier := mood.NewClassifier(&stubCompleter{err: errors.New("timeout")})
	s := NewSession("s", classifier, NewOrchestrator(scripted(answer("ok")), testAgentConfig()), newTestRegistry(t), nil)

	res := s.Run(context.Background(), "hello")
	require.Nil(t, res.Error)
	assert.Equal(t, mood.Default, res.Mood)
	assert.Equal(t, "ok", res.Output())
}

func TestSession_SameQuerySameMood(t *testing.T) {
	llm := scripted(answer("答"))
	s := newTestSession(t, "friendly", llm)

	first := s.Run(context.Background(), "谢谢大师")
	second := s.Run(context.Background(), "谢谢大师")
	assert.Equal(t, first.Mood, second.Mood)
	assert.Equal(t, llm.request(0)[0].Content, llm.request(1)[0].Content)
}

func TestSession_NonexistentToolDoesNotFail(t *testing.T) {
	llm := scripted(
		toolCall("c1", "nonexistent_tool", map[string]interface{}{}),
		answer("老夫另寻他法"),
	)
	s := newTestSession(t, "default", llm)

	res := s.Run(context.Background(), "q")
	require.Nil(t, res.Error)
	assert.Equal(t, "老夫另寻他法", res.Output())
	assert.True(t, res.Final.Trace[0].Failed)
}

func TestSession_LoopBudgetExceeded(t *testing.T) {
	gua := &mockTool{name: tools.ToolYaoyigua, out: "卦"}
	llm := scripted(toolCall("c", tools.ToolYaoyigua, map[string]interface{}{}))
	s := newTestSession(t, "default", llm, gua)

	res := s.Run(context.Background(), "q")
	assert.Nil(t, res.Final)
	require.NotNil(t, res.Error)
	assert.Equal(t, apperrors.KindLoopBudgetExceeded, res.Error.Kind)
	assert.NotEmpty(t, res.Error.Message)
	assert.Empty(t, res.Output())
}

func TestSession_PanicIsContained(t *testing.T) {
	llm := &mockLLM{generateFunc: func(int, []adapter.Message) (*adapter.Response, error) {
		panic("boom")
	}}
	s := newTestSession(t, "upbeat", llm)

	var res *Result
	require.NotPanics(t, func() {
		res = s.Run(context.Background(), "q")
	})
	require.NotNil(t, res.Error)
	assert.Equal(t, apperrors.KindInternal, res.Error.Kind)
	assert.True(t, strings.Contains(res.Error.Message, "boom"))
	assert.Equal(t, mood.Upbeat, res.Mood)
}

func TestMaster_ChatKeepsHistory(t *testing.T) {
	store := state.NewMemoryStore(time.Minute, 10)
	llm := scripted(answer("老夫记下了"))
	classifier := mood.NewClassifier(&stubCompleter{out: "default"})
	m := NewMaster(classifier, NewOrchestrator(llm, testAgentConfig()), newTestRegistry(t), store)

	first := m.Chat(context.Background(), "", "我叫张三")
	require.NotNil(t, first.Final)
	require.NotEmpty(t, first.SessionID)

	second := m.Chat(context.Background(), first.SessionID, "我是谁")
	require.NotNil(t, second.Final)
	assert.Equal(t, first.SessionID, second.SessionID)

	msgs := llm.request(1)
	require.Len(t, msgs, 4)
	assert.Equal(t, "我叫张三", msgs[1].Content)
	assert.Equal(t, "老夫记下了", msgs[2].Content)

	turns, err := store.Load(context.Background(), first.SessionID)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestMaster_SessionsAreIsolated(t *testing.T) {
	store := state.NewMemoryStore(time.Minute, 10)
	llm := scripted(answer("答"))
	classifier := mood.NewClassifier(&stubCompleter{out: "default"})
	m := NewMaster(classifier, NewOrchestrator(llm, testAgentConfig()), newTestRegistry(t), store)

	m.Chat(context.Background(), "a", "我叫张三")
	m.Chat(context.Background(), "b", "我是谁")

	assert.Len(t, llm.request(1), 2)
}

type failingStore struct{}

func (failingStore) Load(ctx context.Context, sessionID string) ([]state.Turn, error) {
	return nil, apperrors.NewStoreUnavailable("test", errors.New("down"))
}

func (failingStore) Append(ctx context.Context, sessionID string, turn state.Turn) error {
	return apperrors.NewStoreUnavailable("test", errors.New("down"))
}

func TestMaster_StoreFailureIsNotFatal(t *testing.T) {
	classifier := mood.NewClassifier(&stubCompleter{out: "default"})
	m := NewMaster(classifier, NewOrchestrator(scripted(answer("答")), testAgentConfig()), newTestRegistry(t), failingStore{})

	res := m.Chat(context.Background(), "a", "q")
	assert.Nil(t, res.Error)
	assert.Equal(t, "答", res.Output())
}
