/*
Package notify fans domain events out to primary recipients plus derived
audiences (a child's parents, a user's friends, fellow guild members).

The Router is the single place where derived-audience policy lives: callers
name the relationship kinds they want reached, and failures of the external
relationship lookup degrade gracefully — primary delivery proceeds, the
failure is logged, and the original caller never sees it.
*/
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rktkdduq01/study-app-sub002/internal/app/realtime"
	"github.com/rktkdduq01/study-app-sub002/internal/app/store"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/logx"
)

// lookupTimeout bounds a single relationship lookup; a slow collaborator must
// not hold up primary delivery for longer than this.
const lookupTimeout = 3 * time.Second

// Sender delivers an event to every live connection of a user. The connection
// registry satisfies it.
type Sender interface {
	SendToUser(userID string, event realtime.Event) int
}

// RelationshipLookup resolves derived audiences. The store satisfies it.
type RelationshipLookup interface {
	LookupRelationships(ctx context.Context, userID string, kind store.RelationshipKind) ([]string, error)
}

// Notification is one routing request: an event, its primary recipients, and
// the derived audiences to resolve relative to the acting user.
type Notification struct {
	Event realtime.Event

	// ActorID is the user the derived audiences are resolved against.
	ActorID string

	// PrimaryUserIDs receive the event directly.
	PrimaryUserIDs []string

	// Derived names relationship kinds to expand into additional recipients.
	Derived []store.RelationshipKind
}

// AudienceDelivery reports delivery for one audience.
type AudienceDelivery struct {
	Audience   string
	Recipients int
	Delivered  int
	LookupErr  bool
}

// Report aggregates per-audience delivery counts for observability.
type Report struct {
	Deliveries     []AudienceDelivery
	TotalDelivered int
}

// Router computes recipient sets and hands delivery to the Sender.
type Router struct {
	sender Sender
	rel    RelationshipLookup
	logger zerolog.Logger
}

// NewRouter constructs a Router.
func NewRouter(sender Sender, rel RelationshipLookup) *Router {
	return &Router{
		sender: sender,
		rel:    rel,
		logger: logx.Component("notify_router"),
	}
}

// Route delivers the notification to its primary recipients and every derived
// audience member, deduplicating users that appear in several audiences.
// Derived lookup failures are logged and reflected in the report, never
// returned.
func (r *Router) Route(ctx context.Context, n Notification) Report {
	report := Report{}
	seen := make(map[string]struct{})

	primary := AudienceDelivery{Audience: "primary"}
	for _, userID := range n.PrimaryUserIDs {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		primary.Recipients++
		primary.Delivered += deliveredAsOne(r.sender.SendToUser(userID, n.Event))
	}
	report.Deliveries = append(report.Deliveries, primary)
	report.TotalDelivered += primary.Delivered

	for _, kind := range n.Derived {
		delivery := r.routeDerived(ctx, n, kind, seen)
		report.Deliveries = append(report.Deliveries, delivery)
		report.TotalDelivered += delivery.Delivered
	}

	return report
}

func (r *Router) routeDerived(ctx context.Context, n Notification, kind store.RelationshipKind, seen map[string]struct{}) AudienceDelivery {
	delivery := AudienceDelivery{Audience: string(kind)}

	lookupCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	related, err := r.rel.LookupRelationships(lookupCtx, n.ActorID, kind)
	if err != nil {
		r.logger.Error().Err(err).
			Str("actor_id", n.ActorID).
			Str("audience", string(kind)).
			Str("event_type", string(n.Event.Type)).
			Msg("Derived audience lookup failed, primary delivery unaffected.")
		delivery.LookupErr = true
		return delivery
	}

	for _, userID := range related {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		delivery.Recipients++
		delivery.Delivered += deliveredAsOne(r.sender.SendToUser(userID, n.Event))
	}

	return delivery
}

// deliveredAsOne collapses a multi-connection fan-out into a per-user count:
// a user counts as delivered when at least one of their devices got the event.
func deliveredAsOne(connections int) int {
	if connections > 0 {
		return 1
	}
	return 0
}

// HandlePresence routes presence transitions to the user's friends. Wire it
// as a PresenceTracker subscription.
func (r *Router) HandlePresence(ev realtime.PresenceEvent) {
	r.Route(context.Background(), Notification{
		Event: realtime.NewEvent(realtime.EventPresenceChanged, realtime.PresencePayload{
			UserID:   ev.UserID,
			Online:   ev.Online,
			LastSeen: ev.LastSeen.UnixMilli(),
		}),
		ActorID: ev.UserID,
		Derived: []store.RelationshipKind{store.RelFriend},
	})
}
