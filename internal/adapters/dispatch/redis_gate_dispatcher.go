package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"canal-optimization-service/internal/domain"
)

// Queue key the SCADA collaborator consumes gate setpoints from.
const commandQueueKey = "scada:gate_commands"

// Envelope pushed onto the dispatch queue, one per run.
type commandBatch struct {
	RunID    string               `json:"run_id"`
	IssuedAt time.Time            `json:"issued_at"`
	Commands []domain.GateCommand `json:"commands"`
}

// Redis-backed implementation of the GateDispatcher port. Commands are
// pushed as one JSON batch onto a list the SCADA bridge BRPOPs; the engine
// does not wait for execution acknowledgements.
type RedisGateDispatcher struct {
	Client *redis.Client
}

func NewRedisGateDispatcher(client *redis.Client) *RedisGateDispatcher {
	return &RedisGateDispatcher{Client: client}
}

func (d *RedisGateDispatcher) Dispatch(ctx context.Context, runID string, commands []domain.GateCommand) error {
	if d.Client == nil {
		return errors.New("redis gate dispatcher: client is nil")
	}
	if len(commands) == 0 {
		return nil
	}

	batch := commandBatch{
		RunID:    runID,
		IssuedAt: time.Now().UTC(),
		Commands: commands,
	}
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("dispatch gate commands run=%q: marshal: %w", runID, err)
	}

	if err := d.Client.LPush(ctx, commandQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("dispatch gate commands run=%q: push: %w", runID, err)
	}
	return nil
}
