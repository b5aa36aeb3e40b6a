package action

import (
	"fmt"
	"strings"

	"web3-token-agent/internal/worker/model"
	"web3-token-agent/pkg/twitter"
)

const extractSystem = `You extract token references from chat transcripts. Reply with a single JSON object and nothing else.`

const extractTemplate = `Recent messages, oldest first:
%s

Find the token the user most recently asked to analyze. Respond with JSON:
{"ticker": "<symbol without $>", "inputTokenAddress": "<contract or mint address>", "chain": "<solana|ethereum|base|bsc|arbitrum|polygon>"}
Use an empty string for any field that is not stated in the messages. Do not guess addresses.`

const socialSystem = `You are a crypto market analyst summarizing social media sentiment. Be factual and concise.`

const socialTemplate = `Recent posts mentioning %s:
%s

Summarize the overall sentiment, notable accounts, recurring themes and any red flags (scams, rugs, coordinated shilling) in under 200 words.`

const scoreSystem = `You are a trading analyst rating tokens. Reply with a single JSON object and nothing else.`

const scoreTemplate = `Rate the token %s (%s on %s) using the two reports below.

Social analysis:
%s

Technical analysis:
%s

Respond with JSON:
{"score": "<STRONG_SELL|SELL|NEUTRAL|BUY|STRONG_BUY>", "reason": "<two to four sentences explaining the rating>"}`

func formatTranscript(msgs []*model.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		text := strings.TrimSpace(m.Content.Text)
		if text == "" {
			continue
		}
		speaker := "user"
		if m.UserID == m.AgentID {
			speaker = "agent"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, text)
	}
	return b.String()
}

func formatPosts(posts []twitter.Post) string {
	var b strings.Builder
	for _, p := range posts {
		text := strings.ReplaceAll(p.Text, "\n", " ")
		fmt.Fprintf(&b, "- @%s (%d likes, %d retweets, %s): %s\n", p.Username, p.Likes, p.Retweets, p.Timestamp.UTC().Format("2006-01-02 15:04"), text)
	}
	return b.String()
}
