package action

import (
	"reflect"
	"strings"

	"web3-token-agent/internal/worker/model"
	"web3-token-agent/pkg/utils"

	"github.com/go-viper/mapstructure/v2"
)

// TokenRequest 评分请求的三元组
type TokenRequest struct {
	Ticker            string `json:"ticker" mapstructure:"ticker"`
	InputTokenAddress string `json:"inputTokenAddress" mapstructure:"inputTokenAddress"`
	Chain             string `json:"chain" mapstructure:"chain"`
}

// Normalize 校验并规范化，不合法返回 false
func (r *TokenRequest) Normalize() bool {
	r.Ticker = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(r.Ticker), "$"))
	r.Chain = utils.NormalizeChain(r.Chain)
	r.InputTokenAddress = strings.TrimSpace(r.InputTokenAddress)
	if !utils.IsSupportedChain(r.Chain) || !utils.IsValidAddress(r.Chain, r.InputTokenAddress) {
		return false
	}
	r.InputTokenAddress = utils.ChecksumAddress(r.InputTokenAddress, r.Chain)
	return true
}

// ScorePayload 评分动作交给交易动作的数据
type ScorePayload struct {
	TokenRequest `mapstructure:",squash"`
	Score        model.TokenScore `json:"score" mapstructure:"score"`
	ObjectID     string           `json:"objectId,omitempty" mapstructure:"objectId"`
}

func (p ScorePayload) ToMap() map[string]any {
	return map[string]any{
		"score":             p.Score.String(),
		"ticker":            p.Ticker,
		"inputTokenAddress": p.InputTokenAddress,
		"chain":             p.Chain,
		"objectId":          p.ObjectID,
	}
}

var scoreType = reflect.TypeOf(model.TokenScore(0))

// scoreHook 评分字段同时接受标签和序号
func scoreHook(from, to reflect.Type, data any) (any, error) {
	if to != scoreType {
		return data, nil
	}
	if s, ok := data.(string); ok {
		if score, ok := model.ParseTokenScore(s); ok {
			return score, nil
		}
	}
	return data, nil
}

func decodeData(data map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       scoreHook,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(data)
}

// requestFromData 消息里已带齐三元组时直接使用
func requestFromData(data map[string]any) (*TokenRequest, bool) {
	if len(data) == 0 {
		return nil, false
	}
	var req TokenRequest
	if err := decodeData(data, &req); err != nil {
		return nil, false
	}
	if !req.Normalize() {
		return nil, false
	}
	return &req, true
}

// payloadFromData 解析交易动作输入，score 必须合法
func payloadFromData(data map[string]any) (*ScorePayload, bool) {
	if len(data) == 0 {
		return nil, false
	}
	if _, ok := data["score"]; !ok {
		return nil, false
	}
	var p ScorePayload
	if err := decodeData(data, &p); err != nil {
		return nil, false
	}
	if !p.Score.Valid() || !p.Normalize() {
		return nil, false
	}
	return &p, true
}
