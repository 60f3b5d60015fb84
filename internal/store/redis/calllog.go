package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jdeweedata/circletel-sub016/internal/telemetry"
)

// DefaultCallLogMax bounds the retained call-log entries.
const DefaultCallLogMax = 1000

// AppendCallLog prepends one call record to the bounded call log.
func (s *Store) AppendCallLog(ctx context.Context, rec telemetry.CallRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal call record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, KeyCallLog, data)
	pipe.LTrim(ctx, KeyCallLog, 0, DefaultCallLogMax-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append call record: %w", err)
	}
	return nil
}

// RecentCallLogs returns the n most recent call records, newest first.
func (s *Store) RecentCallLogs(ctx context.Context, n int) ([]telemetry.CallRecord, error) {
	if n <= 0 {
		n = 100
	}
	raw, err := s.client.LRange(ctx, KeyCallLog, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read call log: %w", err)
	}

	records := make([]telemetry.CallRecord, 0, len(raw))
	for _, item := range raw {
		var rec telemetry.CallRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			continue // skip corrupt entries
		}
		records = append(records, rec)
	}
	return records, nil
}
