package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/boddenberg/finance-tracker-go/internal/domain"
)

func encodeChange(ev domain.ChangeEvent) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal change event: %w", err)
	}
	return body, nil
}

// decodeChange parses a message body and rejects events that cannot be
// routed to a user or collection.
func decodeChange(body []byte) (domain.ChangeEvent, error) {
	var ev domain.ChangeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("unmarshal change event: %w", err)
	}
	if ev.UserID == "" {
		return ev, fmt.Errorf("change event without user_id")
	}
	switch ev.Collection {
	case domain.CollectionExpenses, domain.CollectionSavings, domain.CollectionSalaries:
	default:
		return ev, fmt.Errorf("change event for unknown collection %q", ev.Collection)
	}
	return ev, nil
}
