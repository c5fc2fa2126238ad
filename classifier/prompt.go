package classifier

import (
	"bytes"
	"fmt"
)

const systemPrompt = "You are a strict content moderator. Output in JSON."

func formatPrompt(req *Request) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "분석할 댓글: %q\n\n", req.Text)
	fmt.Fprintf(&buf, "[판단 기준]\n다음 기준을 모두 적용하여 엄격하게 검사하세요:\n")
	for _, rule := range req.Rules.Basic {
		fmt.Fprintf(&buf, "- [기본검사] %s\n", rule)
	}
	for _, c := range req.Rules.Categories {
		fmt.Fprintf(&buf, "- [%s] %s\n", c.Name, c.Rule)
	}
	fmt.Fprintf(&buf, "\n__W__, __B__, __F__, __S__ 형태의 토큰은 이미 처리된 부분이므로 무시하세요.\n")
	fmt.Fprintf(&buf, "댓글에서 기준을 위반하는 구체적인 부분(단어, 구문)을 원문 그대로 모두 찾아, 각 항목에 가장 알맞은 카테고리를 지정하여 아래 JSON 형식으로만 응답하세요.\n")
	fmt.Fprintf(&buf, `{"detected_items": [{"keyword": "문제된 단어/구문", "category": "카테고리명 (예: PRIVACY)"}], "reason": "판단 사유", "severity": 1}`)
	fmt.Fprintf(&buf, "\nseverity는 1에서 5 사이의 정수입니다. 위반이 없으면 detected_items를 빈 배열로 응답하세요.\n")
	return buf.String()
}
