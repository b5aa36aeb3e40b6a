package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// TokenScore 五档评分，持久化时保存序号 0..4
type TokenScore int8

const (
	ScoreStrongSell TokenScore = iota
	ScoreSell
	ScoreNeutral
	ScoreBuy
	ScoreStrongBuy
)

var scoreLabels = [...]string{
	ScoreStrongSell: "STRONG_SELL",
	ScoreSell:       "SELL",
	ScoreNeutral:    "NEUTRAL",
	ScoreBuy:        "BUY",
	ScoreStrongBuy:  "STRONG_BUY",
}

// AllScores 全部评分档位，按序号排列
func AllScores() []TokenScore {
	return []TokenScore{ScoreStrongSell, ScoreSell, ScoreNeutral, ScoreBuy, ScoreStrongBuy}
}

func (s TokenScore) Valid() bool {
	return s >= ScoreStrongSell && s <= ScoreStrongBuy
}

func (s TokenScore) String() string {
	if !s.Valid() {
		return "UNKNOWN(" + strconv.Itoa(int(s)) + ")"
	}
	return scoreLabels[s]
}

// ParseTokenScore 解析评分标签，大小写与空格/连字符不敏感
func ParseTokenScore(label string) (TokenScore, bool) {
	norm := strings.ToUpper(strings.TrimSpace(label))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for i, l := range scoreLabels {
		if l == norm {
			return TokenScore(i), true
		}
	}
	return ScoreNeutral, false
}

// UnmarshalJSON 同时接受序号和标签
func (s *TokenScore) UnmarshalJSON(data []byte) error {
	var n int
	if err := sonic.Unmarshal(data, &n); err == nil {
		v := TokenScore(n)
		if !v.Valid() {
			return fmt.Errorf("token score out of range: %d", n)
		}
		*s = v
		return nil
	}

	var label string
	if err := sonic.Unmarshal(data, &label); err != nil {
		return fmt.Errorf("invalid token score: %s", string(data))
	}
	v, ok := ParseTokenScore(label)
	if !ok {
		return fmt.Errorf("unknown token score label: %s", label)
	}
	*s = v
	return nil
}
