package twitter

import (
	"context"
	"errors"
	"time"

	"web3-token-agent/internal/worker/config"

	twitterscraper "github.com/imperatrona/twitter-scraper"
	"go.uber.org/zap"
)

var ErrNotLoggedIn = errors.New("twitter session not authenticated")

type Post struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Likes     int       `json:"likes"`
	Retweets  int       `json:"retweets"`
	Timestamp time.Time `json:"timestamp"`
}

type Searcher struct {
	scraper  *twitterscraper.Scraper
	maxPosts int
	logger   *zap.Logger
}

func NewSearcher(cfg config.TwitterConfig, logger *zap.Logger) *Searcher {
	scraper := twitterscraper.New()
	if cfg.AuthToken != "" {
		scraper.SetAuthToken(twitterscraper.AuthToken{Token: cfg.AuthToken, CSRFToken: cfg.CSRFToken})
	}
	scraper.SetSearchMode(twitterscraper.SearchLatest)
	maxPosts := cfg.MaxPosts
	if maxPosts <= 0 {
		maxPosts = 30
	}
	return &Searcher{scraper: scraper, maxPosts: maxPosts, logger: logger}
}

// SearchRecent 按最新排序搜索推文，单条解析失败跳过
func (s *Searcher) SearchRecent(ctx context.Context, query string) ([]Post, error) {
	if !s.scraper.IsLoggedIn() {
		return nil, ErrNotLoggedIn
	}
	posts := make([]Post, 0, s.maxPosts)
	for res := range s.scraper.SearchTweets(ctx, query, s.maxPosts) {
		if res.Error != nil {
			s.logger.Warn("Tweet search item failed", zap.String("query", query), zap.Error(res.Error))
			continue
		}
		posts = append(posts, Post{
			ID:        res.ID,
			Username:  res.Username,
			Text:      res.Text,
			Likes:     res.Likes,
			Retweets:  res.Retweets,
			Timestamp: res.TimeParsed,
		})
	}
	if err := ctx.Err(); err != nil {
		return posts, err
	}
	return posts, nil
}
