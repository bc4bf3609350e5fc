package assistant

import (
	"fmt"
	"strings"
	"unicode"
)

const recommendTemplate = `你是一个问题推荐生成器。根据以下提供的资料，提取出与资料内容相关但用户可能还未询问的3-5个问题。只列出问题，不要给出答案。
参考资料：%s
用户问题：%s`

func recommendPrompt(reference, query string) string {
	return fmt.Sprintf(recommendTemplate, reference, query)
}

// parseRecommendations turns a newline separated list into questions,
// dropping enumeration markers and blank lines.
func parseRecommendations(raw string, max int) []string {
	questions := []string{}
	for _, line := range strings.Split(raw, "\n") {
		q := strings.TrimLeftFunc(strings.TrimSpace(line), isListMarker)
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		questions = append(questions, q)
		if len(questions) == max {
			break
		}
	}
	return questions
}

func isListMarker(r rune) bool {
	if unicode.IsDigit(r) || unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '.', '、', ')', '）', '-', '*', '•', '．':
		return true
	}
	return false
}
