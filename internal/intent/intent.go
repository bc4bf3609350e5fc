// Package intent routes an incoming user message to one of four handling
// paths by asking the language model to label it.
package intent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/phuslu/log"

	"github.com/ziadkadry99/course-assistant/internal/llm"
)

// Label is the routing category of a user message.
type Label string

const (
	RAGQA            Label = "RAG_QA"
	GeneralQA        Label = "GENERAL_QA"
	CourseManagement Label = "COURSE_MANAGEMENT"
	SystemAction     Label = "SYSTEM_ACTION"
)

// Labels lists every label in taxonomy order.
var Labels = []Label{RAGQA, GeneralQA, CourseManagement, SystemAction}

// Valid reports whether l is one of the four known labels.
func (l Label) Valid() bool {
	switch l {
	case RAGQA, GeneralQA, CourseManagement, SystemAction:
		return true
	}
	return false
}

// Result is the structured answer the model is asked to return.
type Result struct {
	Intent Label  `json:"intent"`
	Reason string `json:"reason"`
}

// Chatter is the part of llm.Client the classifier needs.
type Chatter interface {
	Chat(ctx context.Context, userText string, history []llm.Message, opts ...llm.ChatOption) (string, error)
}

// Classifier labels user messages. It never fails: any problem resolves to
// GeneralQA.
type Classifier struct {
	chat Chatter
}

// NewClassifier creates a classifier backed by chat.
func NewClassifier(chat Chatter) *Classifier {
	return &Classifier{chat: chat}
}

// Classify returns the label for message.
func (c *Classifier) Classify(ctx context.Context, message string) Label {
	return c.ClassifyWithReason(ctx, message).Intent
}

// ClassifyWithReason returns the label and the model's stated reason.
func (c *Classifier) ClassifyWithReason(ctx context.Context, message string) Result {
	fallback := Result{Intent: GeneralQA}

	raw, err := c.chat.Chat(ctx, Prompt(message), nil)
	if err != nil {
		log.Warn().Err(err).Msg("intent classification failed, falling back to general QA")
		fallback.Reason = "classification failed"
		return fallback
	}
	log.Debug().Str("raw", raw).Msg("intent response")

	res, ok := Parse(raw)
	if !ok {
		log.Warn().Str("raw", raw).Msg("no usable intent object in response")
		fallback.Reason = "unparseable classification"
		return fallback
	}
	return res
}

// Parse extracts a Result from free-form model output. ok is false when no
// JSON object is found or its intent is not a known label.
func Parse(raw string) (Result, bool) {
	obj, found := ExtractObject(raw)
	if !found {
		return Result{}, false
	}

	var res Result
	if err := json.Unmarshal([]byte(obj), &res); err != nil {
		return Result{}, false
	}
	res.Intent = Label(strings.ToUpper(strings.TrimSpace(string(res.Intent))))
	if !res.Intent.Valid() {
		return Result{}, false
	}
	return res, true
}
