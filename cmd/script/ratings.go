package main

import (
	"context"
	"fmt"

	"web3-token-agent/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	ratingsTicker string
	ratingsLimit  int
)

var ratingsCmd = &cobra.Command{
	Use:   "ratings",
	Short: "Search indexed ratings",
	Long:  `Queries the rating index in Elasticsearch by ticker, newest first.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, span := logger.StartSpan(context.Background(), "script", "ratings")
		defer span.End()
		e := setup(ctx)
		defer e.repo.Close()

		es := e.repo.GetES()
		if es == nil {
			exit(fmt.Errorf("elasticsearch.addresses is not configured"))
		}
		query := map[string]any{
			"size": ratingsLimit,
			"sort": []any{map[string]any{"timestamp": map[string]any{"order": "desc"}}},
			"query": map[string]any{
				"term": map[string]any{"ticker": ratingsTicker},
			},
		}
		res, err := es.Search(ctx, e.cfg.Elasticsearch.RatingsIndexName, query)
		if err != nil {
			exit(err)
		}
		fmt.Printf("%d ratings\n", res.Hits.Total.Value)
		for _, hit := range res.Hits.Hits {
			src := hit.Source
			fmt.Printf("%v  %-12v %-10v traded=%v  %v\n", src["timestamp"], src["score_label"], src["chain"], src["traded"], hit.ID)
		}
	},
}

func init() {
	ratingsCmd.Flags().StringVar(&ratingsTicker, "ticker", "", "Token ticker (upper case)")
	ratingsCmd.Flags().IntVar(&ratingsLimit, "limit", 20, "Max results")

	_ = ratingsCmd.MarkFlagRequired("ticker")
}
