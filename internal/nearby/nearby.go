// Package nearby turns nearby-places lookups into short assistant messages.
package nearby

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zulandar/proptalk/internal/backend"
	"github.com/zulandar/proptalk/internal/conversation"
	"github.com/zulandar/proptalk/internal/logging"
	"go.uber.org/zap"
)

// MaxPlaces caps how many places one message lists.
const MaxPlaces = 3

// Place categories offered by the UI.
const (
	School   = "school"
	Hospital = "hospital"
	Mall     = "mall"
)

// Categories lists the place types in display order.
var Categories = []string{School, Hospital, Mall}

// Backend is the part of the backend client the resolver needs.
type Backend interface {
	Nearby(ctx context.Context, propertyName, placeType string) (*backend.NearbyResult, error)
}

// Resolver fetches nearby places and formats them as an assistant reply.
// It never touches the conversation: the caller records the property under
// discussion before asking and decides whether the reply is still wanted.
type Resolver struct {
	backend Backend
	log     *zap.Logger
}

// ResolverOpts holds parameters for creating a Resolver.
type ResolverOpts struct {
	Backend Backend
	Logger  *zap.Logger
}

// NewResolver creates a Resolver.
func NewResolver(opts ResolverOpts) (*Resolver, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("nearby: backend is required")
	}
	return &Resolver{
		backend: opts.Backend,
		log:     logging.OrNop(opts.Logger),
	}, nil
}

// Lookup queries the backend and formats at most MaxPlaces places. Empty or
// malformed answers report ok=false with a nil error. Transport failures are
// returned for logging only.
func (r *Resolver) Lookup(ctx context.Context, propertyName, placeType string) (conversation.Reply, bool, error) {
	res, err := r.backend.Nearby(ctx, propertyName, placeType)
	if errors.Is(err, backend.ErrMalformed) {
		r.log.Debug("nearby: malformed payload", zap.String("property", propertyName), zap.String("type", placeType))
		return conversation.Reply{}, false, nil
	}
	if err != nil {
		return conversation.Reply{}, false, fmt.Errorf("nearby: %s near %s: %w", placeType, propertyName, err)
	}
	if len(res.Places) == 0 {
		r.log.Debug("nearby: no places", zap.String("property", propertyName), zap.String("type", placeType))
		return conversation.Reply{}, false, nil
	}
	return Format(propertyName, placeType, res.Places), true, nil
}

// Format renders places with the fixed nearby template. Only the first
// MaxPlaces are used.
func Format(propertyName, placeType string, places []backend.Place) conversation.Reply {
	if len(places) > MaxPlaces {
		places = places[:MaxPlaces]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🗺️ Found %d %ss near **%s**:\n\n", len(places), placeType, propertyName)
	for i, p := range places {
		fmt.Fprintf(&b, "%d. **%s**\n", i+1, p.Name)
		if p.Vicinity != "" {
			fmt.Fprintf(&b, "   📍 %s\n", p.Vicinity)
		}
		if p.Rating != nil {
			fmt.Fprintf(&b, "   ⭐ %.1f\n", *p.Rating)
		}
		b.WriteString("\n")
	}
	b.WriteString("💡 Need more details? Just ask me!")

	return conversation.Reply{
		Text:        b.String(),
		Suggestions: FollowUps(propertyName, placeType),
	}
}

// FollowUps returns the fixed follow-up set: the two other categories for
// the same property, then commute times.
func FollowUps(propertyName, placeType string) []string {
	out := make([]string, 0, 3)
	for _, c := range Categories {
		if c == placeType {
			continue
		}
		if len(out) == 2 {
			break
		}
		out = append(out, fmt.Sprintf("Find %ss near %s", c, propertyName))
	}
	return append(out, "Tell me about commute times")
}

// Query builds the chat text used when a nearby search is typed rather
// than clicked.
func Query(propertyName, placeType string) string {
	return fmt.Sprintf("Find %ss near %s", placeType, propertyName)
}
