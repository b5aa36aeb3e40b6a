package elasticsearch

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

type Client struct {
	es     *elasticsearch.Client
	logger *zap.Logger
}

type Config struct {
	Addresses []string
	Username  string
	Password  string
	Indexes   map[string]map[string]any // indexName -> mapping
}

// BulkOperation 批量操作的结构
type BulkOperation struct {
	Action   string         `json:"action"` // index, create, delete
	Index    string         `json:"index"`
	ID       string         `json:"id"`
	Document map[string]any `json:"document"`
}

type bulkItem struct {
	Status int `json:"status"`
	Error  any `json:"error"`
}

type bulkResp struct {
	Errors bool                  `json:"errors"`
	Items  []map[string]bulkItem `json:"items"`
}

func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	client := &Client{es: es, logger: log}

	// 初始化索引
	for indexName, mapping := range cfg.Indexes {
		if err := client.CreateIndex(context.Background(), indexName, mapping); err != nil {
			log.Error("Failed to initialize ES index", zap.String("index", indexName), zap.Error(err))
		}
	}
	return client, nil
}

// BulkWrite 批量写入，任一条目失败即返回错误
func (c *Client) BulkWrite(ctx context.Context, operations []BulkOperation) error {
	if len(operations) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, op := range operations {
		actionLine := map[string]any{
			op.Action: map[string]any{"_index": op.Index, "_id": op.ID},
		}
		actionBytes, err := sonic.Marshal(actionLine)
		if err != nil {
			return err
		}
		buf.Write(actionBytes)
		buf.WriteByte('\n')

		if op.Action != "delete" && op.Document != nil {
			docBytes, err := sonic.Marshal(op.Document)
			if err != nil {
				return fmt.Errorf("marshal document %s: %w", op.ID, err)
			}
			buf.Write(docBytes)
			buf.WriteByte('\n')
		}
	}

	res, err := esapi.BulkRequest{Body: &buf}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("bulk operation failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk operation error: %s", res.String())
	}

	var parsed bulkResp
	if err := sonic.ConfigDefault.NewDecoder(res.Body).Decode(&parsed); err == nil && parsed.Errors {
		failed := 0
		for _, item := range parsed.Items {
			for _, r := range item {
				if r.Error != nil {
					failed++
				}
			}
		}
		return fmt.Errorf("bulk operation partially failed: %d of %d items", failed, len(operations))
	}

	c.logger.Debug("Bulk write operation completed", zap.Int("operations", len(operations)))
	return nil
}

// CreateIndex 创建索引，已存在视为成功
func (c *Client) CreateIndex(ctx context.Context, indexName string, mapping map[string]any) error {
	mappingJSON, err := sonic.MarshalString(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	res, err := esapi.IndicesCreateRequest{Index: indexName, Body: strings.NewReader(mappingJSON)}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return fmt.Errorf("failed to create index: %s", res.String())
	}

	c.logger.Info("Index created or already exists", zap.String("index", indexName))
	return nil
}

// Search 普通搜索
func (c *Client) Search(ctx context.Context, indexName string, query map[string]any) (*SearchResult, error) {
	queryJSON, err := sonic.MarshalString(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := esapi.SearchRequest{Index: []string{indexName}, Body: strings.NewReader(queryJSON)}.Do(ctx, c.es)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var result SearchResult
	if err := sonic.ConfigDefault.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search result: %w", err)
	}
	return &result, nil
}

type SearchResult struct {
	Took     int  `json:"took"`
	TimedOut bool `json:"timed_out"`
	Hits     struct {
		Total struct {
			Value    int    `json:"value"`
			Relation string `json:"relation"`
		} `json:"total"`
		Hits []Hit `json:"hits"`
	} `json:"hits"`
}

type Hit struct {
	Index  string         `json:"_index"`
	ID     string         `json:"_id"`
	Source map[string]any `json:"_source"`
}
