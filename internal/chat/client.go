// Package chat runs the conversation pipeline: user intent updates the
// property context, a session-scoped request goes to the backend, the reply
// lands in the conversation store and the map follows.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zulandar/proptalk/internal/backend"
	"github.com/zulandar/proptalk/internal/conversation"
	"github.com/zulandar/proptalk/internal/logging"
	"github.com/zulandar/proptalk/internal/mapsync"
	"github.com/zulandar/proptalk/internal/nearby"
	"github.com/zulandar/proptalk/internal/property"
	"github.com/zulandar/proptalk/internal/session"
	"github.com/zulandar/proptalk/internal/suggest"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Backend is everything the client asks of the backend collaborator.
type Backend interface {
	session.Backend
	nearby.Backend
	Chat(ctx context.Context, query, sessionID string) (*backend.ChatReply, error)
	ListProperties(ctx context.Context) (*backend.PropertyList, error)
}

// CatalogCache keeps the last known property catalog. The client reads it
// when the backend listing fails and refreshes it when the listing works.
type CatalogCache interface {
	All() ([]property.Summary, error)
	Replace(items []property.Summary) error
}

// ErrResetting is returned for input that arrives while a reset is
// replacing the session.
var ErrResetting = errors.New("chat: reset in progress")

// Insights is the behavior panel: what the backend has learned so far.
type Insights struct {
	Stage         string   `json:"stage"`
	Interests     []string `json:"interests"`
	LastMentioned string   `json:"last_mentioned"`
}

// Client is one chat conversation with its map.
type Client struct {
	backend       Backend
	sessions      *session.Manager
	store         *conversation.Store
	tracker       *property.Tracker
	suggestions   *suggest.Handler
	nearby        *nearby.Resolver
	engine        *mapsync.Engine // nil when running without a map
	cache         CatalogCache
	followResults bool
	log           *zap.Logger
	events        *broker

	inflight sync.WaitGroup

	// mu serializes every change to the conversation so a reset and a
	// late reply can never interleave.
	mu        sync.Mutex
	started   bool
	resetting bool
	baseCtx   context.Context
	catalog   *property.Catalog
	results   []property.Summary
}

// ClientOpts holds parameters for creating a Client.
type ClientOpts struct {
	Backend Backend
	Cache   CatalogCache // optional
	Logger  *zap.Logger  // optional
	Now     func() time.Time

	// Map settings. A nil Library runs the client without a map.
	Library       mapsync.Library
	MapCenter     property.LatLng
	MapZoom       int
	PollInterval  time.Duration
	LoadTimeout   time.Duration
	MapHidden     bool
	FollowResults bool
}

// NewClient wires a Client. Nothing touches the network until Start.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("chat: backend is required")
	}
	log := logging.OrNop(opts.Logger)

	sessions, err := session.NewManager(session.ManagerOpts{Backend: opts.Backend, Logger: log})
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	tracker := property.NewTracker()
	c := &Client{
		backend:       opts.Backend,
		sessions:      sessions,
		store:         conversation.NewStore(conversation.StoreOpts{Now: opts.Now}),
		tracker:       tracker,
		cache:         opts.Cache,
		followResults: opts.FollowResults,
		log:           log,
		events:        newBroker(),
		baseCtx:       context.Background(),
		catalog:       property.NewCatalog(),
	}

	c.suggestions, err = suggest.NewHandler(suggest.SubmitFunc(c.Send))
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	c.nearby, err = nearby.NewResolver(nearby.ResolverOpts{
		Backend: opts.Backend,
		Logger:  log.Named("nearby"),
	})
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	if opts.Library != nil {
		c.engine, err = mapsync.NewEngine(mapsync.EngineOpts{
			Library:      opts.Library,
			Interaction:  c.interaction(),
			Logger:       log.Named("mapsync"),
			Center:       opts.MapCenter,
			Zoom:         opts.MapZoom,
			PollInterval: opts.PollInterval,
			LoadTimeout:  opts.LoadTimeout,
			Hidden:       opts.MapHidden,
			OnChange:     func() { c.events.publish(EventMap) },
		})
		if err != nil {
			return nil, fmt.Errorf("chat: %w", err)
		}
	}
	return c, nil
}

// interaction routes marker and overlay events into the pipeline. Overlay
// actions go through the same path as typed text.
func (c *Client) interaction() mapsync.Interaction {
	return mapsync.InteractionFuncs{
		Select: c.Select,
		AskAbout: func(name string) {
			c.AskAbout(c.ctx(), name)
		},
		FindNearby: func(name, placeType string) {
			c.dropIfResetting(c.submit(c.ctx(), nearby.Query(name, placeType), name))
		},
	}
}

func (c *Client) ctx() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseCtx
}

// Start opens the conversation: the welcome message is shown, the session
// and the property catalog load concurrently, then the map starts. Backend
// failures degrade features and are only logged. ctx bounds the map
// library wait and every request issued by interactions.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("chat: already started")
	}
	c.started = true
	c.baseCtx = ctx
	c.appendWelcomeLocked()
	c.mu.Unlock()
	c.events.publish(EventMessages)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := c.sessions.Create(gctx); err != nil {
			c.log.Warn("starting without a session", zap.Error(err))
		}
		c.events.publish(EventSession)
		return nil
	})
	g.Go(func() error {
		c.loadCatalog(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("chat: start: %w", err)
	}

	if c.engine != nil {
		c.engine.Start(ctx)
	}
	return nil
}

func (c *Client) loadCatalog(ctx context.Context) {
	list, err := c.backend.ListProperties(ctx)
	if err != nil {
		c.log.Warn("load properties", zap.Error(err))
		if c.cache == nil {
			return
		}
		cached, cerr := c.cache.All()
		if cerr != nil {
			c.log.Warn("read property cache", zap.Error(cerr))
			return
		}
		c.log.Info("using cached properties", zap.Int("properties", len(cached)))
		c.SetCatalog(cached)
		return
	}

	items := list.Catalog().All()
	if c.cache != nil {
		if err := c.cache.Replace(items); err != nil {
			c.log.Warn("write property cache", zap.Error(err))
		}
	}
	c.log.Info("properties loaded", zap.Int("list", len(list.List)), zap.Int("map", len(list.Map)))
	c.SetCatalog(items)
}

// Send submits typed text. Blank text is ignored. The reply is applied when
// it arrives; replies to concurrent sends land in completion order. Send
// returns ErrResetting without recording anything while a reset runs.
func (c *Client) Send(ctx context.Context, text string) error {
	return c.submit(ctx, text, "")
}

// AskAbout selects name and asks the backend about it.
func (c *Client) AskAbout(ctx context.Context, name string) {
	c.dropIfResetting(c.submit(ctx, AskAboutQuery(name), name))
}

// Details selects name and asks for its full details.
func (c *Client) Details(ctx context.Context, name string) {
	c.dropIfResetting(c.submit(ctx, DetailsQuery(name), name))
}

func (c *Client) dropIfResetting(err error) {
	if err != nil {
		c.log.Debug("dropping action", zap.Error(err))
	}
}

// ApplySuggestion strips decoration from a suggestion and sends it.
func (c *Client) ApplySuggestion(ctx context.Context, text string) error {
	return c.suggestions.Apply(ctx, text)
}

// submit is the single entry point for outgoing chat text. explicit, when
// set, overrides whatever property the text itself mentions.
func (c *Client) submit(ctx context.Context, text, explicit string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if c.resetting {
		c.mu.Unlock()
		return ErrResetting
	}
	c.store.AppendUser(text)
	c.tracker.Note(text, c.catalog.All())
	if explicit != "" {
		c.tracker.SetLastMentioned(explicit)
	}
	tok := c.sessions.Token()
	c.mu.Unlock()
	c.events.publish(EventMessages)
	c.events.publish(EventContext)

	ctx = context.WithoutCancel(ctx)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		reply, err := c.backend.Chat(ctx, text, tok.ID)
		c.applyChat(tok, reply, err)
	}()
	return nil
}

func (c *Client) applyChat(tok session.Token, reply *backend.ChatReply, err error) {
	c.mu.Lock()
	if !c.sessions.Valid(tok) {
		c.mu.Unlock()
		c.log.Info("dropping reply from previous session", zap.Uint64("epoch", tok.Epoch))
		return
	}
	if err != nil {
		c.store.AppendAssistant(conversation.Reply{Text: ApologyText})
		c.mu.Unlock()
		c.log.Error("chat request failed", zap.Error(err))
		c.events.publish(EventMessages)
		return
	}

	props := c.catalog.Enrich(reply.Properties)
	c.store.AppendAssistant(conversation.Reply{
		Text:        reply.Text,
		Properties:  props,
		Images:      reply.Images,
		Suggestions: reply.Suggestions,
	})
	c.tracker.SetBehavior(reply.Behavior)
	c.tracker.SetPendingSuggestions(reply.Suggestions)
	if c.followResults && len(props) > 0 {
		c.results = props
		c.syncMapLocked()
	}
	c.mu.Unlock()

	c.events.publish(EventMessages)
	c.events.publish(EventContext)
}

// FindNearby lists places of placeType near name, as a property card's
// action does. name becomes the property under discussion right away, so a
// later selection is never overwritten by the lookup. Nothing is appended
// when the backend finds nothing or the session changed meanwhile.
func (c *Client) FindNearby(ctx context.Context, name, placeType string) {
	c.mu.Lock()
	if c.resetting {
		c.mu.Unlock()
		c.dropIfResetting(ErrResetting)
		return
	}
	c.tracker.SetLastMentioned(name)
	tok := c.sessions.Token()
	c.mu.Unlock()
	c.events.publish(EventContext)

	ctx = context.WithoutCancel(ctx)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		reply, ok, err := c.nearby.Lookup(ctx, name, placeType)
		if err != nil {
			c.log.Warn("nearby lookup failed", zap.Error(err))
			return
		}
		if !ok {
			return
		}
		c.mu.Lock()
		if !c.sessions.Valid(tok) {
			c.mu.Unlock()
			c.log.Info("dropping nearby reply from previous session", zap.Uint64("epoch", tok.Epoch))
			return
		}
		c.store.AppendAssistant(reply)
		c.tracker.SetPendingSuggestions(reply.Suggestions)
		c.mu.Unlock()
		c.events.publish(EventMessages)
	}()
}

// Select makes name the property under discussion.
func (c *Client) Select(name string) {
	c.tracker.SetLastMentioned(name)
	c.events.publish(EventContext)
}

// ClickMarker simulates a click on the named marker. It reports false
// when there is no map or no such marker.
func (c *Client) ClickMarker(name string) bool {
	if c.engine == nil {
		return false
	}
	return c.engine.Click(name)
}

// Reset starts over: the backend session is replaced first, then the
// conversation is cleared, the context forgotten and the map returned to the
// full catalog. The store is left empty; front ends call Welcome once they
// have cleared their own state. Replies still in flight are discarded when
// they arrive. Input submitted while the session is being replaced fails
// with ErrResetting, as does a second concurrent Reset.
func (c *Client) Reset(ctx context.Context) error {
	c.mu.Lock()
	if c.resetting {
		c.mu.Unlock()
		return ErrResetting
	}
	c.resetting = true
	c.mu.Unlock()

	// The manager invalidates the old token before touching the network,
	// so c.mu stays free while the backend is slow.
	_, err := c.sessions.Reset(ctx)

	c.mu.Lock()
	c.store.Clear()
	c.tracker.Reset()
	c.results = nil
	c.syncMapLocked()
	c.resetting = false
	c.mu.Unlock()

	c.events.publish(EventSession)
	c.events.publish(EventMessages)
	c.events.publish(EventContext)
	if err != nil {
		return fmt.Errorf("chat: reset: %w", err)
	}
	return nil
}

// SetCatalog replaces the known properties.
func (c *Client) SetCatalog(items []property.Summary) {
	c.mu.Lock()
	c.catalog = property.NewCatalog(items)
	c.syncMapLocked()
	c.mu.Unlock()

	c.events.publish(EventContext)
}

// SetMapVisible shows or hides the map panel.
func (c *Client) SetMapVisible(v bool) {
	if c.engine != nil {
		c.engine.SetVisible(v)
	}
}

// syncMapLocked hands the map the properties it should show: the latest
// non-empty result set when following results, else the whole catalog.
// c.mu must be held so map updates keep the order of conversation changes.
func (c *Client) syncMapLocked() {
	if c.engine == nil {
		return
	}
	if c.followResults && len(c.results) > 0 {
		c.engine.SetProperties(c.results)
		return
	}
	c.engine.SetProperties(c.catalog.All())
}

// Welcome shows the welcome message and starter chips when the
// conversation is empty, as it is after Reset.
func (c *Client) Welcome() {
	c.mu.Lock()
	if c.store.Len() > 0 {
		c.mu.Unlock()
		return
	}
	c.appendWelcomeLocked()
	c.mu.Unlock()
	c.events.publish(EventMessages)
}

func (c *Client) appendWelcomeLocked() {
	c.store.AppendAssistant(conversation.Reply{
		Text:        WelcomeText,
		Suggestions: append([]string(nil), StarterSuggestions...),
	})
}

// Wait blocks until every request issued so far has been applied or
// dropped.
func (c *Client) Wait() {
	c.inflight.Wait()
}

// Close waits for in-flight requests, tears down the map and closes every
// subscription.
func (c *Client) Close() {
	c.inflight.Wait()
	if c.engine != nil {
		c.engine.Close()
		c.engine.Wait()
	}
	c.events.close()
}

// Subscribe returns a channel of change notifications and a function that
// cancels the subscription.
func (c *Client) Subscribe() (<-chan Event, func()) {
	return c.events.subscribe()
}

// Messages returns the conversation in display order.
func (c *Client) Messages() []conversation.Message {
	return c.store.Messages()
}

// Suggestions returns the chips to offer now: those of the newest
// assistant message, or the running set when it has none.
func (c *Client) Suggestions() []string {
	var own []string
	if m, ok := c.store.LastAssistant(); ok {
		own = m.Suggestions
	}
	return suggest.Choose(own, c.tracker.PendingSuggestions())
}

// Catalog returns the known properties.
func (c *Client) Catalog() []property.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog.All()
}

// Lookup finds a known property by name.
func (c *Client) Lookup(name string) (property.Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog.Lookup(name)
}

// LastMentioned returns the property under discussion.
func (c *Client) LastMentioned() (string, bool) {
	return c.tracker.LastMentioned()
}

// Insights summarizes the behavior signals and current context.
func (c *Client) Insights() Insights {
	b := c.tracker.Behavior()
	last, _ := c.tracker.LastMentioned()
	interests := b.Interests()
	if interests == nil {
		interests = []string{}
	}
	return Insights{Stage: b.Stage(), Interests: interests, LastMentioned: last}
}

// SessionID returns the current backend session id, or "".
func (c *Client) SessionID() string {
	return c.sessions.ID()
}

// Map returns a snapshot of the map pane. ok is false when the client runs
// without a map.
func (c *Client) Map() (mapsync.View, bool) {
	if c.engine == nil {
		return mapsync.View{}, false
	}
	return c.engine.Snapshot(), true
}

// MapEngine exposes the engine to front ends that render overlay actions.
func (c *Client) MapEngine() *mapsync.Engine {
	return c.engine
}
