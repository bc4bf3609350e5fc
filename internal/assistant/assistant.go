// Package assistant answers one chat turn: it classifies the message,
// optionally retrieves course material, and produces the assistant reply
// together with follow-up question suggestions.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phuslu/log"

	"github.com/ziadkadry99/course-assistant/internal/intent"
	"github.com/ziadkadry99/course-assistant/internal/llm"
	"github.com/ziadkadry99/course-assistant/internal/vectordb"
)

const (
	// EmptyIndexNotice prefixes general answers to document questions asked
	// before anything was uploaded.
	EmptyIndexNotice = "您好，知识库中还没有内容，我将进行通用问答。请先上传文件。"
	// Apology replaces the answer when retrieval or generation fails.
	Apology = "对不起，处理您的请求时出现错误。请稍后重试。"

	DefaultTopK           = 5
	DefaultMaxRecommended = 5
)

// Chatter is the chat surface of llm.Client.
type Chatter interface {
	Chat(ctx context.Context, userText string, history []llm.Message, opts ...llm.ChatOption) (string, error)
}

// Classifier labels an incoming message. It must not fail.
type Classifier interface {
	Classify(ctx context.Context, message string) intent.Label
}

// Retriever is the read side of the vector index.
type Retriever interface {
	Exists() bool
	Search(ctx context.Context, query string, k int) ([]vectordb.SearchResult, error)
}

// Config tunes retrieval and suggestions.
type Config struct {
	TopK           int
	MaxRecommended int
}

// Assistant routes one user turn to the right answering path.
type Assistant struct {
	chat       Chatter
	classifier Classifier
	index      Retriever
	course     *CourseInfo
	cfg        Config
}

// New wires an assistant. course may be nil.
func New(chat Chatter, classifier Classifier, index Retriever, course *CourseInfo, cfg Config) *Assistant {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MaxRecommended <= 0 {
		cfg.MaxRecommended = DefaultMaxRecommended
	}
	return &Assistant{
		chat:       chat,
		classifier: classifier,
		index:      index,
		course:     course,
		cfg:        cfg,
	}
}

// Reply is the outcome of one turn.
type Reply struct {
	Answer               string        `json:"answer"`
	Intent               intent.Label  `json:"intent"`
	RecommendedQuestions []string      `json:"recommended_questions"`
	Sources              []string      `json:"sources,omitempty"`
	History              []llm.Message `json:"history"`
}

// Answer handles userText given the prior conversation, which must not
// include userText itself. The returned history is history plus the user
// turn and exactly one assistant turn. Answer never returns an error; failures
// become an apology with no recommendations.
func (a *Assistant) Answer(ctx context.Context, history []llm.Message, userText string) Reply {
	start := time.Now()
	label := a.classifier.Classify(ctx, userText)

	reply, err := a.route(ctx, label, history, userText)
	if err != nil {
		log.Error().Str("intent", string(label)).Err(err).Msg("answer failed")
		reply = Reply{Answer: Apology}
	}
	reply.Intent = label
	if reply.RecommendedQuestions == nil {
		reply.RecommendedQuestions = []string{}
	}

	reply.History = make([]llm.Message, 0, len(history)+2)
	reply.History = append(reply.History, history...)
	reply.History = append(reply.History,
		llm.Message{Role: llm.RoleUser, Content: userText},
		llm.Message{Role: llm.RoleAssistant, Content: reply.Answer},
	)

	log.Info().Str("intent", string(label)).Int("recommended", len(reply.RecommendedQuestions)).
		Dur("elapsed", time.Since(start)).Msg("answered")
	return reply
}

func (a *Assistant) route(ctx context.Context, label intent.Label, history []llm.Message, userText string) (Reply, error) {
	switch label {
	case intent.RAGQA:
		return a.answerFromDocuments(ctx, history, userText)
	case intent.CourseManagement:
		if answer, ok := a.course.Lookup(userText); ok {
			return Reply{Answer: answer}, nil
		}
		return a.answerGeneral(ctx, history, userText)
	case intent.SystemAction:
		return Reply{Answer: systemActionReply(userText)}, nil
	default:
		return a.answerGeneral(ctx, history, userText)
	}
}

func (a *Assistant) answerGeneral(ctx context.Context, history []llm.Message, userText string) (Reply, error) {
	answer, err := a.chat.Chat(ctx, userText, history)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Answer: answer}, nil
}

func (a *Assistant) answerFromDocuments(ctx context.Context, history []llm.Message, userText string) (Reply, error) {
	if a.index == nil || !a.index.Exists() {
		return a.answerWithoutIndex(ctx, history, userText)
	}

	results, err := a.index.Search(ctx, userText, a.cfg.TopK)
	if errors.Is(err, vectordb.ErrNotReady) {
		return a.answerWithoutIndex(ctx, history, userText)
	}
	if err != nil {
		return Reply{}, fmt.Errorf("retrieving context: %w", err)
	}

	texts := make([]string, 0, len(results))
	var sources []string
	seen := make(map[string]bool)
	for _, r := range results {
		texts = append(texts, r.Chunk.Text)
		if !seen[r.Chunk.Source] {
			seen[r.Chunk.Source] = true
			sources = append(sources, r.Chunk.Source)
		}
		log.Debug().Str("source", r.Chunk.Source).Float32("similarity", r.Similarity).Msg("retrieved chunk")
	}
	reference := strings.Join(texts, "\n\n")

	var recommended []string
	raw, err := a.chat.Chat(ctx, recommendPrompt(reference, userText), nil)
	if err != nil {
		log.Warn().Err(err).Msg("recommendation generation failed")
	} else {
		recommended = parseRecommendations(raw, a.cfg.MaxRecommended)
	}

	answer, err := a.chat.Chat(ctx, userText, history, llm.WithReference(reference))
	if err != nil {
		return Reply{}, err
	}
	return Reply{Answer: answer, RecommendedQuestions: recommended, Sources: sources}, nil
}

func (a *Assistant) answerWithoutIndex(ctx context.Context, history []llm.Message, userText string) (Reply, error) {
	log.Info().Msg("knowledge base is empty, answering without documents")
	reply, err := a.answerGeneral(ctx, history, userText)
	if err != nil {
		return Reply{}, err
	}
	reply.Answer = EmptyIndexNotice + "\n\n" + reply.Answer
	return reply, nil
}
