package action

import (
	"context"
	"fmt"
	"strings"

	"web3-token-agent/internal/worker/analyzer"
	"web3-token-agent/internal/worker/model"
	"web3-token-agent/internal/worker/monitor"
	"web3-token-agent/internal/worker/runtime"
	"web3-token-agent/pkg/httpclient"
	"web3-token-agent/pkg/launchpad"
	"web3-token-agent/pkg/logger"
	"web3-token-agent/pkg/utils"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

const (
	ScoreTokenName = "SCORE_TOKEN"

	recentMessageCount = 10

	socialPlaceholder    = "Unable to fetch social sentiment for this token at the moment."
	technicalPlaceholder = "Unable to fetch token information for technical analysis at the moment."
	noPostsText          = "No recent posts were found for this token."
	notFoundText         = "I couldn't tell which token to score. Please send the ticker, contract address and chain."
)

type ScoreDeps struct {
	Model    Model
	Posts    PostSearcher
	Analyzer TokenAnalyzer
	Clubs    ClubSource // 可为 nil
	Memory   RoomMemory // 可为 nil
	Ratings  RatingStore
}

// ScoreToken 社交 + 技术分析后让模型给出五档评分
type ScoreToken struct {
	deps ScoreDeps
	tl   *zap.Logger
}

func NewScoreToken(deps ScoreDeps, tl *zap.Logger) *ScoreToken {
	return &ScoreToken{deps: deps, tl: logger.Component(tl, "action.score")}
}

func (a *ScoreToken) Name() string { return ScoreTokenName }

func (a *ScoreToken) Similes() []string {
	return []string{"RATE_TOKEN", "ANALYZE_TOKEN", "TOKEN_SCORE"}
}

func (a *ScoreToken) Description() string {
	return "Scores a token from STRONG_SELL to STRONG_BUY using social sentiment and on-chain market data."
}

func (a *ScoreToken) Validate(ctx context.Context, msg *model.Message) bool {
	if _, ok := requestFromData(msg.Content.Data); ok {
		return true
	}
	return strings.TrimSpace(msg.Content.Text) != "" && a.deps.Memory != nil
}

// resolveRequest 优先用消息数据，否则让模型从最近对话里抽取
func (a *ScoreToken) resolveRequest(ctx context.Context, msg *model.Message, tl *zap.Logger) *TokenRequest {
	if req, ok := requestFromData(msg.Content.Data); ok {
		return req
	}
	if a.deps.Memory == nil {
		return nil
	}
	recent, err := a.deps.Memory.Recent(ctx, msg.AgentID, msg.RoomID, recentMessageCount)
	if err != nil {
		tl.Warn("load recent messages failed", zap.Error(err))
		return nil
	}
	transcript := formatTranscript(recent)
	if transcript == "" {
		transcript = fmt.Sprintf("user: %s\n", msg.Content.Text)
	}

	var req TokenRequest
	if err := a.deps.Model.CompleteJSON(ctx, extractSystem, fmt.Sprintf(extractTemplate, transcript), &req); err != nil {
		tl.Warn("token extraction failed", zap.Error(err))
		return nil
	}
	if !req.Normalize() {
		tl.Info("extracted token request rejected", zap.String("chain", req.Chain), zap.String("address", req.InputTokenAddress))
		return nil
	}
	return &req
}

func (a *ScoreToken) socialAnalysis(ctx context.Context, req *TokenRequest, tl *zap.Logger) string {
	query := req.InputTokenAddress
	if req.Ticker != "" {
		query = "$" + req.Ticker
	}
	posts, err := a.deps.Posts.SearchRecent(ctx, query)
	if err != nil {
		tl.Warn("social search failed", zap.String("query", query), zap.Error(err))
		return socialPlaceholder
	}
	if len(posts) == 0 {
		return noPostsText
	}
	summary, err := a.deps.Model.Complete(ctx, socialSystem, fmt.Sprintf(socialTemplate, query, formatPosts(posts)))
	if err != nil {
		tl.Warn("social summary failed", zap.Error(err))
		return socialPlaceholder
	}
	return summary
}

func (a *ScoreToken) technicalAnalysis(ctx context.Context, req *TokenRequest, tl *zap.Logger) string {
	data, err := a.deps.Analyzer.GetProcessedTokenData(ctx, analyzer.TokenRef{
		Chain:   req.Chain,
		Address: req.InputTokenAddress,
		Ticker:  req.Ticker,
	})
	if err != nil {
		tl.Warn("technical analysis failed", zap.Error(err))
		return technicalPlaceholder
	}
	if req.Ticker == "" {
		req.Ticker = data.Token.Ticker
	}
	report := analyzer.FormatReport(data)

	if a.deps.Clubs != nil && req.Chain == utils.ChainBase {
		club, err := a.deps.Clubs.GetClubByToken(ctx, req.InputTokenAddress)
		switch {
		case err == nil:
			report += "\n" + launchpad.Summary(club)
		case !httpclient.IsNoData(err):
			tl.Warn("launchpad lookup failed", zap.Error(err))
		}
	}
	return report
}

func (a *ScoreToken) Handle(ctx context.Context, msg *model.Message, cb runtime.Callback) error {
	tl := logger.WithTrace(ctx, a.tl).With(zap.String("room_id", msg.RoomID))

	req := a.resolveRequest(ctx, msg, tl)
	if req == nil {
		return cb(ctx, model.Content{Text: notFoundText, Source: msg.Content.Source})
	}
	tl = tl.With(zap.String("chain", req.Chain), zap.String("token", req.InputTokenAddress))

	// 两路分析互不依赖，失败都降级为占位文本
	var social, technical string
	socialReq := *req
	var wg conc.WaitGroup
	wg.Go(func() { social = a.socialAnalysis(ctx, &socialReq, tl) })
	wg.Go(func() { technical = a.technicalAnalysis(ctx, req, tl) })
	wg.Wait()

	var out struct {
		Score  string `json:"score"`
		Reason string `json:"reason"`
	}
	prompt := fmt.Sprintf(scoreTemplate, req.Ticker, req.InputTokenAddress, req.Chain, social, technical)
	if err := a.deps.Model.CompleteJSON(ctx, scoreSystem, prompt, &out); err != nil {
		tl.Error("scoring prompt failed", zap.Error(err))
		return nil
	}
	score, ok := model.ParseTokenScore(out.Score)
	if !ok {
		tl.Error("model returned unknown score label", zap.String("label", out.Score))
		return nil
	}
	monitor.TokenScores.WithLabelValues(score.String()).Inc()
	tl.Info("Token scored", zap.String("ticker", req.Ticker), zap.String("score", score.String()))

	reply := model.Content{
		Text:   fmt.Sprintf("%s: %s\n\n%s", req.Ticker, score, strings.TrimSpace(out.Reason)),
		Source: msg.Content.Source,
	}

	rating := &model.TokenRating{
		AgentID:      msg.AgentID,
		Ticker:       req.Ticker,
		TokenAddress: req.InputTokenAddress,
		Chain:        req.Chain,
		Score:        score,
		Reason:       out.Reason,
		Requester:    msg.UserID,
	}
	saved, err := a.deps.Ratings.Save(ctx, rating)
	if err != nil {
		tl.Error("persist rating failed", zap.Error(err))
	}
	if saved {
		payload := ScorePayload{TokenRequest: *req, Score: score, ObjectID: rating.ID}
		reply.Action = ExecuteTradeName
		reply.Data = payload.ToMap()
	}
	return cb(ctx, reply)
}
