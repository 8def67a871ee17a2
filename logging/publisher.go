package logging

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// CorrelationPublisherDecorator stamps the correlation ID from the message
// context onto outgoing messages so consumers can pick it back up.
type CorrelationPublisherDecorator struct {
	message.Publisher
}

func (d CorrelationPublisherDecorator) Publish(topic string, messages ...*message.Message) error {
	for i := range messages {
		if middleware.MessageCorrelationID(messages[i]) != "" {
			continue
		}

		correlationID := CorrelationIDFromContext(messages[i].Context())
		middleware.SetCorrelationID(correlationID, messages[i])
	}

	return d.Publisher.Publish(topic, messages...)
}
