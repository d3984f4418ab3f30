package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/acmeid/login-orchestrator/internal/domain"
)

// LogNotifier is a stand-in delivery adapter that writes the notification
// to the structured log instead of an SMS/email gateway. The real gateway
// integration lives behind the same interface.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Send delivers a message to the user on the given channel.
func (n *LogNotifier) Send(ctx context.Context, userID uuid.UUID, channel domain.Channel, message string) error {
	slog.InfoContext(ctx, "Notification sent",
		slog.String("user_id", userID.String()),
		slog.String("channel", string(channel)),
		slog.String("message", message),
	)
	return nil
}
