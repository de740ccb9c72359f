package push

import (
	"context"

	"relay-chat/pkg/logger"
)

// Result is the per-token outcome of a multicast.
type Result struct {
	Token string
	Err   error
}

// Notifier is the mobile push collaborator. Delivery is best-effort:
// callers log failures and never surface them to their own clients.
type Notifier interface {
	PushMulticast(ctx context.Context, tokens []string, title, body, imageURL string) []Result
}

// LogNotifier is the fallback sink used when no push provider is
// configured. It records the would-be notification and reports success.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) PushMulticast(ctx context.Context, tokens []string, title, body, imageURL string) []Result {
	if n.log != nil {
		n.log.Infof("push multicast (%d tokens): %s - %s", len(tokens), title, body)
	}
	results := make([]Result, 0, len(tokens))
	for _, t := range tokens {
		results = append(results, Result{Token: t})
	}
	return results
}
