package clients

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/reusee/scriptd/events"
)

// WaitDone consumes events until the done event of number arrives.
func (c *Client) WaitDone(ctx context.Context, number int64) (events.DonePayload, error) {
	for {
		select {
		case ev := <-c.events:
			if ev.Name != events.Done {
				continue
			}
			var payload events.DonePayload
			if err := json.Unmarshal(ev.Payload, &payload); err != nil {
				return payload, fmt.Errorf("decode done event: %w", err)
			}
			if payload.Number == number {
				return payload, nil
			}
		case <-c.Done():
			return events.DonePayload{}, fmt.Errorf("connection closed")
		case <-ctx.Done():
			return events.DonePayload{}, ctx.Err()
		}
	}
}
