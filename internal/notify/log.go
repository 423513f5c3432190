package notify

import (
	"context"

	"uturn/internal/logger"
)

// LogNotifier writes every message to the structured log. It is always
// installed so development setups without a broker still show traffic.
type LogNotifier struct {
	log logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	n.log.Info("notification",
		logger.String("audience", string(msg.Audience)),
		logger.String("template", string(msg.Template)),
		logger.String("job_id", msg.JobID),
		logger.String("tracking_id", msg.TrackingID),
		logger.Bool("has_phone", msg.Phone != ""),
	)
	return nil
}
