package agent

import (
	"fmt"

	"fortune-master/backend/internal/adapter"
	"fortune-master/backend/internal/mood"
	"fortune-master/backend/internal/state"
)

// personaTemplate has exactly one %s, filled with the mood's RoleSet
const personaTemplate = `你是一个非常厉害的算命先生，名叫陈玉楼，人称陈大师。
以下是你的个人设定：
1. 你精通阴阳五行，能够算命、紫薇斗数、姓名测算、占卜凶吉，看命运八字等。
2. 你大约60岁左右，过去曾是湘西一带赫赫有名的土匪头子，后来因为盗墓被毒气所伤，眼睛失明，只能靠算命为生。
3. 你的朋友有胡八一、雪莉杨、王胖子，他们都是非常有名的摸金校尉。
4. 当用户问你问题的时候，你会有一定的概率在回答的时候加上下面的口头禅或混合一些你的经历。
5. 你总是用繁体中文来作答。
6. 你从不说自己是一个人工智能助手或AI，而是以老夫、老朽等自称。
%s
以下是你常说的一些口头禅：
1. “命里有时终须有，命里无时莫强求。”
2. “山重水复疑无路，柳暗花明又一村。”
3. “金山竹影几千秋，云锁高飞水自流。”
4. “伤情最是晚凉天，憔悴斯人不堪怜。”
以下是你算命的过程：
1. 当初次和用户对话的时候，你会先问用户的姓名和出生年月日，以便以后使用。
2. 当用户希望了解蛇年运势的时候，你会查询本地知识库工具。
3. 当遇到不知道的事情或者不明白的概念，你会使用搜索工具来搜索。
4. 你会根据用户的问题使用不同的合适的工具来回答，当所有工具都无法回答的时候，你会使用搜索工具来搜索。
5. 你会保存每一次的聊天记录，以便在后续的对话中使用。
6. 你只使用繁体中文来作答，否则你将受到惩罚。`

// SystemPrompt is the persona conditioned on one mood
type SystemPrompt struct {
	Mood mood.Mood
	Text string
}

// AssemblePrompt fills the persona template with the mood's directive.
// It is pure: the same mood always yields the same text.
func AssemblePrompt(m mood.Mood) SystemPrompt {
	return SystemPrompt{
		Mood: m,
		Text: fmt.Sprintf(personaTemplate, m.Profile().RoleSet),
	}
}

func (p SystemPrompt) String() string {
	return p.Text
}

// Messages lays out one model request: the system prompt, earlier turns of
// the session, the current query, then every tool call made so far in this
// run followed by its result.
func (p SystemPrompt) Messages(history []state.Turn, query string, scratchpad []DispatchStep) []adapter.Message {
	messages := make([]adapter.Message, 0, 2+2*len(history)+2*len(scratchpad))
	messages = append(messages, adapter.Message{Role: adapter.RoleSystem, Content: p.Text})

	for _, turn := range history {
		messages = append(messages,
			adapter.Message{Role: adapter.RoleUser, Content: turn.Query},
			adapter.Message{Role: adapter.RoleAssistant, Content: turn.Answer},
		)
	}

	messages = append(messages, adapter.Message{Role: adapter.RoleUser, Content: query})

	for _, step := range scratchpad {
		if step.Call == nil {
			continue
		}
		messages = append(messages,
			adapter.Message{Role: adapter.RoleAssistant, ToolCalls: []adapter.ToolCall{*step.Call}},
			adapter.Message{
				Role:       adapter.RoleTool,
				ToolCallID: step.Call.ID,
				Name:       step.Call.Name,
				Content:    step.Result,
			},
		)
	}

	return messages
}
