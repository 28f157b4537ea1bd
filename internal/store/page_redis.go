package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// PageStore keeps one hash per page of a finished job.
type PageStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPageStore(client *redis.Client, ttl time.Duration) *PageStore {
	return &PageStore{client: client, ttl: ttl}
}

func (s *PageStore) pageKey(token string, page int) string {
	return fmt.Sprintf("job:%s:page:%d", token, page)
}

// SavePages writes every report under job:{token}:page:{n}. Reports are
// plain structs; their JSON fields become hash fields.
func (s *PageStore) SavePages(ctx context.Context, token string, reports []any) error {
	pipe := s.client.TxPipeline()
	for i, r := range reports {
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode page %d: %w", i+1, err)
		}
		var fields map[string]interface{}
		if err := json.Unmarshal(b, &fields); err != nil {
			return fmt.Errorf("encode page %d: %w", i+1, err)
		}
		key := s.pageKey(token, i+1)
		pipe.HSet(ctx, key, fields)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

// GetPage returns the stored fields of one page, or nil when missing.
func (s *PageStore) GetPage(ctx context.Context, token string, page int) (map[string]string, error) {
	res, err := s.client.HGetAll(ctx, s.pageKey(token, page)).Result()
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, nil
	}
	return res, nil
}

// GetPages reads pages 1..total in order, skipping missing ones.
func (s *PageStore) GetPages(ctx context.Context, token string, total int) ([]map[string]string, error) {
	out := make([]map[string]string, 0, total)
	for i := 1; i <= total; i++ {
		p, err := s.GetPage(ctx, token, i)
		if err != nil {
			return out, err
		}
		if p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}
