package mood

import (
	"context"

	"go.uber.org/zap"

	"fortune-master/backend/internal/adapter"
	"fortune-master/backend/internal/metrics"
	apperrors "fortune-master/backend/pkg/errors"
	"fortune-master/backend/pkg/logger"
)

// Completer is the single-shot model call the classifier needs
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, messages []adapter.Message) (string, error)
}

const classificationPrompt = `根据用户的输入判断用户的情绪，回应的规则如下：
1. 如果用户输入的内容偏向于负面情绪，只返回"depressed"，不要有其他内容，否则将受到惩罚。
2. 如果用户输入的内容偏向于正面情绪，只返回"friendly"，不要有其他内容，否则将受到惩罚。
3. 如果用户输入的内容偏向于中性情绪，只返回"default"，不要有其他内容，否则将受到惩罚。
4. 如果用户输入的内容包含辱骂或者不礼貌词句，只返回"angry"，不要有其他内容，否则将受到惩罚。
5. 如果用户输入的内容比较兴奋，只返回"upbeat"，不要有其他内容，否则将受到惩罚。
6. 如果用户输入的内容比较悲伤，只返回"depressed"，不要有其他内容，否则将受到惩罚。
7. 如果用户输入的内容比较开心，只返回"cheerful"，不要有其他内容，否则将受到惩罚。
8. 只返回上述英文标签中的一个，不允许有换行符、解释或多个标签，否则会受到惩罚。
下一条消息就是用户输入的内容。`

// Classifier maps free text to a Mood with one model call
type Classifier struct {
	llm    Completer
	logger *zap.Logger
}

// NewClassifier creates a mood classifier
func NewClassifier(llm Completer) *Classifier {
	return &Classifier{
		llm:    llm,
		logger: logger.Get(),
	}
}

// Classify returns the mood for query. Output outside the six labels yields
// Default with no error. A failed model call yields Default together with an
// *ErrClassificationFailed so the caller can decide whether to continue.
func (c *Classifier) Classify(ctx context.Context, query string) (Mood, error) {
	raw, err := c.llm.Complete(ctx, classificationPrompt, []adapter.Message{
		{Role: adapter.RoleUser, Content: query},
	})
	if err != nil {
		metrics.MoodTotal.WithLabelValues("error").Inc()
		return Default, apperrors.NewClassificationFailed(raw, err)
	}

	m, ok := Parse(raw)
	if !ok {
		c.logger.Warn("Classifier returned an unknown mood label, using default",
			zap.String("raw", raw),
		)
	}
	metrics.MoodTotal.WithLabelValues(m.String()).Inc()

	c.logger.Debug("Mood classified", zap.String("mood", m.String()))
	return m, nil
}
