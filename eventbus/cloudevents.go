package eventbus

import (
	"encoding/json"
	"fmt"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// ToCloudEvent wraps a bus event in a CloudEvent. The CloudEvent type carries the
// event name; the payload becomes JSON data.
func ToCloudEvent(event Event, source string) (cloudevents.Event, error) {
	ce := cloudevents.NewEvent()
	ce.SetID(generateEventID())
	ce.SetSource(source)
	ce.SetType(event.Name)
	ce.SetSpecVersion(cloudevents.VersionV1)
	if !event.PublishedAt.IsZero() {
		ce.SetTime(event.PublishedAt)
	}
	if event.Payload != nil {
		if err := ce.SetData(cloudevents.ApplicationJSON, event.Payload); err != nil {
			return cloudevents.Event{}, fmt.Errorf("%w: %w", ErrInvalidCloudEvent, err)
		}
	}
	if err := ce.Validate(); err != nil {
		return cloudevents.Event{}, fmt.Errorf("%w: %w", ErrInvalidCloudEvent, err)
	}
	return ce, nil
}

// FromCloudEvent unwraps a CloudEvent received from outside the process. JSON
// data is decoded into generic values; other content types are passed through
// as raw bytes.
func FromCloudEvent(ce cloudevents.Event) (Event, error) {
	if err := ce.Validate(); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidCloudEvent, err)
	}
	event := Event{Name: ce.Type(), PublishedAt: ce.Time()}

	data := ce.Data()
	if len(data) == 0 {
		return event, nil
	}
	contentType := ce.DataContentType()
	if contentType == "" || contentType == cloudevents.ApplicationJSON || contentType == "text/json" {
		var payload any
		if err := json.Unmarshal(data, &payload); err != nil {
			return Event{}, fmt.Errorf("%w: data is not JSON: %w", ErrInvalidCloudEvent, err)
		}
		event.Payload = payload
		return event, nil
	}
	event.Payload = data
	return event, nil
}

// generateEventID generates a unique identifier for CloudEvents using UUIDv7.
func generateEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}
