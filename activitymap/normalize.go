// Package activitymap converts shell activity events into a flat record for
// audit logs and downstream collectors.
package activitymap

import (
	"strings"
	"time"

	"github.com/goliatone/go-authgate"
)

const (
	MetadataKeyMode    = "mode"
	MetadataKeyOutcome = "outcome"
	MetadataKeyReason  = "reason"
	MetadataKeyFrom    = "from_screen"
	MetadataKeyTo      = "to_screen"
)

const (
	ObjectScreen      = "screen"
	ObjectCredentials = "credentials"
	ObjectSession     = "session"
)

const (
	defaultChannel = "authgate"
	defaultActorID = "anonymous"
)

// Normalized is a transport-agnostic activity shape.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	actorFallback string
}

// Normalize converts an activity event into a Normalized record. The object
// is the target screen for navigation, the form mode for submits and the
// session for sign-out.
func Normalize(event authgate.ActivityEvent, opts ...Option) Normalized {
	options := normalizeOptions{
		channel:       defaultChannel,
		actorFallback: defaultActorID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	objectType, objectID := object(event)

	return Normalized{
		ActorID:    firstNonEmpty(strings.TrimSpace(event.UserID), options.actorFallback),
		Verb:       string(event.EventType),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// WithDefaultChannel sets the channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithActorFallback sets the actor id used when the event has no user.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

func object(event authgate.ActivityEvent) (string, string) {
	switch event.EventType {
	case authgate.ActivityNavigation:
		return ObjectScreen, string(event.To)
	case authgate.ActivitySubmitSucceeded, authgate.ActivitySubmitFailed, authgate.ActivitySubmitInvalid:
		return ObjectCredentials, event.Mode.String()
	case authgate.ActivitySignOut:
		return ObjectSession, strings.TrimSpace(event.UserID)
	}
	return "", ""
}

func normalizeMetadata(event authgate.ActivityEvent) map[string]any {
	metadata := cloneMap(event.Metadata)

	set := func(key, value string) {
		if value == "" {
			return
		}
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}

	switch event.EventType {
	case authgate.ActivitySubmitSucceeded, authgate.ActivitySubmitFailed, authgate.ActivitySubmitInvalid:
		set(MetadataKeyMode, event.Mode.String())
	}
	set(MetadataKeyOutcome, string(event.Outcome))
	set(MetadataKeyReason, string(event.Reason))
	if event.EventType == authgate.ActivityNavigation {
		from := string(event.From)
		if from == "" {
			from = "none"
		}
		set(MetadataKeyFrom, from)
		set(MetadataKeyTo, string(event.To))
	}

	return metadata
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
