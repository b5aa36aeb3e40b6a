package marketcache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"web3-token-agent/pkg/utils"

	"github.com/bytedance/sonic"
)

type fileEntry struct {
	ExpiresAt int64           `json:"expires_at"` // unix 毫秒
	Value     json.RawMessage `json:"value"`
}

// FileStore 磁盘缓存，过期文件在读取时删除，不做主动清理
type FileStore struct {
	dir string
	now func() time.Time
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, utils.SafeFileName(key)+".json")
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	p := s.path(key)
	raw, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var entry fileEntry
	if err := sonic.Unmarshal(raw, &entry); err != nil {
		_ = os.Remove(p)
		return nil, false, nil
	}
	if s.now().UnixMilli() >= entry.ExpiresAt {
		_ = os.Remove(p)
		return nil, false, nil
	}
	return entry.Value, true, nil
}

func (s *FileStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	data, err := sonic.Marshal(fileEntry{
		ExpiresAt: s.now().Add(ttl).UnixMilli(),
		Value:     value,
	})
	if err != nil {
		return err
	}

	// 先写临时文件再 rename，避免读到半截内容
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path(key))
}
