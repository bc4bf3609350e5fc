package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/course-assistant/internal/llm"
	"github.com/ziadkadry99/course-assistant/internal/llm/llmtest"
)

// keywordModel answers the classification prompt the way a well-behaved
// model would for the taxonomy examples.
func keywordModel(req llm.CompletionRequest) (string, error) {
	msg := req.Messages[len(req.Messages)-1].Content
	input := msg[strings.LastIndex(msg, "用户输入:\n")+len("用户输入:\n"):]
	label := GeneralQA
	switch {
	case strings.Contains(input, "根据"):
		label = RAGQA
	case strings.Contains(input, "课程"), strings.Contains(input, "模块"):
		label = CourseManagement
	case strings.Contains(input, "新建"), strings.Contains(input, "上传"):
		label = SystemAction
	}
	return fmt.Sprintf("```json\n{\n  \"intent\": %q,\n  \"reason\": \"keyword\"\n}\n```", label), nil
}

func newClassifier(mock *llmtest.MockProvider) *Classifier {
	return NewClassifier(llm.NewClient(mock, llm.ClientConfig{}))
}

func TestClassifyTaxonomyExamples(t *testing.T) {
	mock := llmtest.NewMockProvider("")
	mock.Respond = keywordModel
	c := newClassifier(mock)
	ctx := context.Background()

	assert.Equal(t, RAGQA, c.Classify(ctx, "根据这份PDF，公司去年的利润是多少？"))
	assert.Equal(t, GeneralQA, c.Classify(ctx, "你好"))
	assert.Equal(t, CourseManagement, c.Classify(ctx, "第三周的核心模块是什么？"))
	assert.Equal(t, SystemAction, c.Classify(ctx, "新建一个聊天。"))
}

func TestClassifySendsPromptWithEmptyHistory(t *testing.T) {
	mock := llmtest.NewMockProvider(`{"intent":"GENERAL_QA","reason":"greeting"}`)
	c := newClassifier(mock)

	res := c.ClassifyWithReason(context.Background(), "你好")

	assert.Equal(t, GeneralQA, res.Intent)
	assert.Equal(t, "greeting", res.Reason)
	require.Equal(t, 1, mock.CallCount())
	msgs := mock.Calls[0].Messages
	require.Len(t, msgs, 2, "system message plus the prompt")
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[1].Content, "RAG_QA")
	assert.True(t, strings.HasSuffix(msgs[1].Content, "你好"))
}

func TestClassifyFailsOpen(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{"malformed", "I think this is a RAG question", nil},
		{"broken json", `{"intent": "RAG_QA", "reason": }`, nil},
		{"unknown label", `{"intent":"SMALL_TALK","reason":"x"}`, nil},
		{"intent not a string", `{"intent":3}`, nil},
		{"empty", "", nil},
		{"upstream failure", "", fmt.Errorf("boom: %w", llm.ErrUpstream)},
		{"plain error", "", errors.New("dial tcp: refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llmtest.NewMockProvider(tt.reply)
			mock.Err = tt.err
			c := newClassifier(mock)

			assert.Equal(t, GeneralQA, c.Classify(context.Background(), "根据文件回答"))
		})
	}
}

func TestClassifyCancelledContext(t *testing.T) {
	mock := llmtest.NewMockProvider(`{"intent":"RAG_QA"}`)
	c := newClassifier(mock)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, GeneralQA, c.Classify(ctx, "根据文件回答"))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Label
		ok   bool
	}{
		{"bare", `{"intent":"RAG_QA","reason":"doc"}`, RAGQA, true},
		{"fenced json", "```json\n{\"intent\": \"SYSTEM_ACTION\"}\n```", SystemAction, true},
		{"fenced no lang", "```\n{\"intent\": \"COURSE_MANAGEMENT\"}\n```", CourseManagement, true},
		{"prose around", "Sure! Here it is: {\"intent\":\"GENERAL_QA\",\"reason\":\"chat\"} Hope that helps.", GeneralQA, true},
		{"lowercase label", `{"intent":" rag_qa "}`, RAGQA, true},
		{"brace in reason", `{"intent":"RAG_QA","reason":"uses {braces} and \"quotes\""}`, RAGQA, true},
		{"skips invalid first span", `{not json} then {"intent":"SYSTEM_ACTION"}`, SystemAction, true},
		{"unterminated quote before object", `he said "{ ok. {"intent":"RAG_QA"}`, RAGQA, true},
		{"nested", `{"intent":"RAG_QA","meta":{"confidence":0.9}}`, RAGQA, true},
		{"no object", "RAG_QA", "", false},
		{"unbalanced", `{"intent":"RAG_QA"`, "", false},
		{"array only", `["RAG_QA"]`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := Parse(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, res.Intent)
		})
	}
}

func TestExtractObjectPrefersFence(t *testing.T) {
	raw := "Prose {\"intent\":\"GENERAL_QA\"}\n```json\n{\"intent\":\"RAG_QA\"}\n```"

	obj, ok := ExtractObject(raw)

	require.True(t, ok)
	assert.Equal(t, `{"intent":"RAG_QA"}`, obj)
}

func TestLabelValid(t *testing.T) {
	for _, l := range Labels {
		assert.True(t, l.Valid(), l)
	}
	assert.False(t, Label("").Valid())
	assert.False(t, Label("rag_qa").Valid())
}
