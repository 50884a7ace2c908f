package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// dispatchStreamMaxLen caps the dispatch stream; entries past the cap are
// trimmed approximately. The pipeline consumes far faster than operators
// submit, so the cap only matters when the sidecar is down for a long time.
const dispatchStreamMaxLen = 10000

// Publisher hands ingest requests over to the external pipeline by appending
// dispatch entries to the stream.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(redisURL string) (*Publisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return &Publisher{rdb: redis.NewClient(opts)}, nil
}

// PublishDispatch appends one dispatch request and returns the stream entry
// id. The dispatch id is duplicated outside the payload so pipeline-side
// tooling can correlate entries without unmarshalling.
func (p *Publisher) PublishDispatch(ctx context.Context, req DispatchRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal dispatch request: %w", err)
	}

	result := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamIngestDispatch,
		MaxLen: dispatchStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"payload":        string(payload),
			"dispatch_id":    req.DispatchID,
			"published_at":   time.Now().Unix(),
			"schema_version": SchemaVersionV1,
		},
	})
	if result.Err() != nil {
		return "", fmt.Errorf("failed to publish to stream: %w", result.Err())
	}
	return result.Val(), nil
}

// Close closes the Redis client connection.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
