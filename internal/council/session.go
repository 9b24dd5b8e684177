// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package council

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/council-tui/internal/api"
	"github.com/jeranaias/council-tui/internal/catalog"
	"github.com/jeranaias/council-tui/internal/config"
	"github.com/jeranaias/council-tui/internal/cost"
)

// MinCouncilSize is the smallest council that can still deliberate.
// Peer ranking needs at least two members.
const MinCouncilSize = 2

// catalogRefreshInterval matches the backend's catalog cache TTL; refreshing
// faster returns the same data.
const catalogRefreshInterval = 10 * time.Minute

var (
	// ErrBusy indicates a turn is already in flight.
	ErrBusy = errors.New("a deliberation is already running")

	// ErrNoCredentials indicates no API key is available anywhere: not in
	// settings, not in the environment, and the backend has no fallback.
	ErrNoCredentials = errors.New("no API key configured")

	// ErrEmptyMessage indicates a blank prompt was submitted.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrCouncilTooSmall indicates removal would shrink the council below
	// its minimum size.
	ErrCouncilTooSmall = fmt.Errorf("council must keep at least %d members", MinCouncilSize)
)

// =============================================================================
// UPDATES
// =============================================================================

// Update is a state-change notification delivered to the UI. The concrete
// types below are the only implementations.
type Update interface {
	isUpdate()
}

// ConversationUpdated carries a fresh conversation snapshot.
type ConversationUpdated struct {
	Conversation *Conversation
}

// SummariesUpdated carries a fresh conversation list.
type SummariesUpdated struct {
	Summaries []Summary
}

// CatalogUpdated signals that the model index, defaults, or exchange rate
// changed.
type CatalogUpdated struct{}

// TurnDone signals that the in-flight turn settled. Err is nil on success.
type TurnDone struct {
	Err error
}

// SettingsRequired signals that a send was refused for lack of credentials
// and the settings screen should open.
type SettingsRequired struct{}

func (ConversationUpdated) isUpdate() {}
func (SummariesUpdated) isUpdate()    {}
func (CatalogUpdated) isUpdate()      {}
func (TurnDone) isUpdate()            {}
func (SettingsRequired) isUpdate()    {}

// Mirror is the optional local persistence sink for fetched conversations.
// It is write-through: failures are logged, never fatal.
type Mirror interface {
	SaveSummaries(summaries []Summary) error
	SaveConversation(conv *Conversation) error
	ListSummaries() ([]Summary, error)
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller drives deliberation sessions: it owns the active conversation,
// enforces single-flight sends, and publishes state changes on its update
// channel. All exported methods are safe for concurrent use.
type Controller struct {
	client  *api.Client
	store   *config.Store
	reducer *Reducer
	limiter *rate.Limiter
	mirror  Mirror

	mu           sync.Mutex
	conv         *Conversation
	pending      *PendingTurn
	index        *catalog.Index
	defaults     catalog.Defaults
	fxRate       float64
	fxStale      bool
	serverHasKey bool
	busy         bool
	cancelTurn   context.CancelFunc

	updates chan Update
}

// NewController creates a controller over the given client and settings
// store.
func NewController(client *api.Client, store *config.Store) *Controller {
	c := &Controller{
		client:  client,
		store:   store,
		limiter: rate.NewLimiter(rate.Every(catalogRefreshInterval), 1),
		fxRate:  cost.FallbackUSDINR,
		updates: make(chan Update, 128),
	}
	c.reducer = NewReducer(Hooks{
		TitleChanged: func(string) { go c.RefreshSummaries(context.Background()) },
		TurnComplete: func() { go c.RefreshSummaries(context.Background()) },
	})
	return c
}

// SetMirror attaches a local persistence sink for offline listing.
func (c *Controller) SetMirror(m Mirror) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mirror = m
}

// Updates returns the channel of state-change notifications.
func (c *Controller) Updates() <-chan Update {
	return c.updates
}

// emit publishes an update without blocking; if the UI has fallen far
// behind, the oldest notification kind simply goes missing and the next
// snapshot supersedes it.
func (c *Controller) emit(u Update) {
	select {
	case c.updates <- u:
	default:
		log.Printf("controller: dropping update %T (channel full)", u)
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Conversation returns the current conversation snapshot, or nil.
func (c *Controller) Conversation() *Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv
}

// Busy reports whether a turn is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Index returns the current catalog index, or nil before the first refresh.
func (c *Controller) Index() *catalog.Index {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Defaults returns the server default selection from the last refresh.
func (c *Controller) Defaults() catalog.Defaults {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defaults
}

// FXRate returns the last fetched USD to INR rate and its staleness.
func (c *Controller) FXRate() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fxRate, c.fxStale
}

// ServerHasKey reports whether the backend holds its own credential, as
// observed during the last catalog refresh.
func (c *Controller) ServerHasKey() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverHasKey
}

// =============================================================================
// CATALOG AND SELECTION
// =============================================================================

// RefreshCatalog fetches the model catalog, reconciles stored defaults, and
// refreshes the exchange rate. Calls inside the backend's cache TTL are
// dropped unless force is set.
func (c *Controller) RefreshCatalog(ctx context.Context, force bool) error {
	if !force && !c.limiter.Allow() {
		return nil
	}

	resp, err := c.client.Models(ctx)
	if err != nil {
		return fmt.Errorf("catalog refresh failed: %w", err)
	}

	if err := c.store.SyncDefaults(resp.Defaults); err != nil {
		return fmt.Errorf("failed to sync defaults: %w", err)
	}

	// A catalog served without a client key means the backend holds its
	// own credential and can deliberate on its own key.
	secret, _ := c.store.Secret()
	serverHasKey := false
	if secret == "" {
		serverHasKey = true
	} else {
		serverHasKey = c.client.HasServerKey(ctx)
	}

	c.mu.Lock()
	c.index = catalog.NewIndex(resp.Models)
	c.defaults = resp.Defaults
	c.serverHasKey = serverHasKey
	c.mu.Unlock()

	if fx, err := c.client.USDINRRate(ctx); err == nil {
		c.mu.Lock()
		c.fxRate = fx.USDINR
		c.fxStale = fx.Stale
		c.mu.Unlock()
	} else {
		log.Printf("controller: exchange rate fetch failed: %v", err)
	}

	c.emit(CatalogUpdated{})
	return nil
}

// CouncilSelection returns the effective council and chairman: the user's
// stored customization when present, otherwise the server defaults.
func (c *Controller) CouncilSelection() ([]string, string) {
	council, err := c.store.CouncilModels()
	if err != nil || len(council) == 0 {
		c.mu.Lock()
		council = c.defaults.Council
		c.mu.Unlock()
	}

	chairman, err := c.store.ChairmanModel()
	if err != nil || chairman == "" {
		c.mu.Lock()
		chairman = c.defaults.Chairman
		c.mu.Unlock()
	}
	return council, chairman
}

// AddCouncilModel adds a model to the council and marks the selection
// customized. Adding a present member is a no-op.
func (c *Controller) AddCouncilModel(id string) error {
	council, _ := c.CouncilSelection()
	for _, m := range council {
		if m == id {
			return nil
		}
	}

	next := append(append([]string(nil), council...), id)
	if err := c.store.SetCouncilModels(next); err != nil {
		return err
	}
	return c.store.SetModelsCustomized(true)
}

// RemoveCouncilModel removes a model from the council. Refused when the
// council would drop below MinCouncilSize.
func (c *Controller) RemoveCouncilModel(id string) error {
	council, _ := c.CouncilSelection()

	next := make([]string, 0, len(council))
	for _, m := range council {
		if m != id {
			next = append(next, m)
		}
	}
	if len(next) == len(council) {
		return nil
	}
	if len(next) < MinCouncilSize {
		return ErrCouncilTooSmall
	}

	if err := c.store.SetCouncilModels(next); err != nil {
		return err
	}
	return c.store.SetModelsCustomized(true)
}

// SetChairman sets the chairman model and marks the selection customized.
func (c *Controller) SetChairman(id string) error {
	if err := c.store.SetChairmanModel(id); err != nil {
		return err
	}
	return c.store.SetModelsCustomized(true)
}

// ResetModels discards user customization and re-applies server defaults.
func (c *Controller) ResetModels() error {
	c.mu.Lock()
	defaults := c.defaults
	c.mu.Unlock()
	return c.store.ResetModelCustomization(defaults)
}

// EstimateDraft projects the prompt cost of sending text with the current
// selection and exchange rate. ok is false when no member has pricing.
func (c *Controller) EstimateDraft(text string) (est cost.Estimate, ok bool) {
	council, _ := c.CouncilSelection()

	c.mu.Lock()
	idx := c.index
	fx := c.fxRate
	c.mu.Unlock()

	return cost.NewEstimate(text, council, idx, fx), cost.HasPricing(council, idx)
}

// =============================================================================
// CONVERSATION MANAGEMENT
// =============================================================================

// RefreshSummaries fetches the conversation list. When the backend is
// unreachable and a mirror is attached, the mirror serves the list instead.
func (c *Controller) RefreshSummaries(ctx context.Context) error {
	wire, err := c.client.ListConversations(ctx)
	if err != nil {
		c.mu.Lock()
		mirror := c.mirror
		c.mu.Unlock()
		if mirror != nil {
			if cached, mErr := mirror.ListSummaries(); mErr == nil && len(cached) > 0 {
				c.emit(SummariesUpdated{Summaries: cached})
				return nil
			}
		}
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	summaries := make([]Summary, 0, len(wire))
	for _, w := range wire {
		summaries = append(summaries, SummaryFromWire(w))
	}

	c.mu.Lock()
	mirror := c.mirror
	c.mu.Unlock()
	if mirror != nil {
		if err := mirror.SaveSummaries(summaries); err != nil {
			log.Printf("controller: mirror save failed: %v", err)
		}
	}

	c.emit(SummariesUpdated{Summaries: summaries})
	return nil
}

// SelectConversation fetches a conversation and makes it active.
func (c *Controller) SelectConversation(ctx context.Context, id string) error {
	wire, err := c.client.GetConversation(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load conversation: %w", err)
	}
	conv := FromWire(wire)

	c.mu.Lock()
	c.conv = conv
	mirror := c.mirror
	c.mu.Unlock()

	if mirror != nil {
		if err := mirror.SaveConversation(conv); err != nil {
			log.Printf("controller: mirror save failed: %v", err)
		}
	}

	c.emit(ConversationUpdated{Conversation: conv})
	return nil
}

// NewConversation discards the active conversation locally. The backend
// conversation is created lazily on the next send.
func (c *Controller) NewConversation() {
	c.mu.Lock()
	c.conv = nil
	c.mu.Unlock()
	c.emit(ConversationUpdated{Conversation: nil})
}

// RenameConversation renames a conversation and refreshes the list.
func (c *Controller) RenameConversation(ctx context.Context, id, title string) error {
	if err := c.client.RenameConversation(ctx, id, title); err != nil {
		return err
	}

	c.mu.Lock()
	if c.conv != nil && c.conv.ID == id {
		next := c.conv.Clone()
		next.Title = title
		c.conv = next
	}
	conv := c.conv
	c.mu.Unlock()

	c.emit(ConversationUpdated{Conversation: conv})
	return c.RefreshSummaries(ctx)
}

// DeleteConversation deletes a conversation and refreshes the list. The
// active conversation is cleared when it is the one deleted.
func (c *Controller) DeleteConversation(ctx context.Context, id string) error {
	if err := c.client.DeleteConversation(ctx, id); err != nil {
		return err
	}

	c.mu.Lock()
	if c.conv != nil && c.conv.ID == id {
		c.conv = nil
	}
	conv := c.conv
	c.mu.Unlock()

	c.emit(ConversationUpdated{Conversation: conv})
	return c.RefreshSummaries(ctx)
}

// =============================================================================
// SENDING
// =============================================================================

// SendMessage runs one deliberation turn: optimistic insert, stream, fold.
// It returns once the turn is accepted; progress arrives on Updates. At
// most one turn runs at a time.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	secret, err := c.store.Secret()
	if err != nil {
		return err
	}

	// Claim the single flight slot before any slow work.
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	c.busy = true
	serverHasKey := c.serverHasKey
	conv := c.conv
	c.mu.Unlock()

	release := func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}

	if secret == "" && !serverHasKey {
		release()
		c.emit(SettingsRequired{})
		return ErrNoCredentials
	}

	// Create the backend conversation on first send.
	if conv == nil || conv.ID == "" {
		wire, err := c.client.CreateConversation(ctx)
		if err != nil {
			release()
			return fmt.Errorf("failed to create conversation: %w", err)
		}
		conv = FromWire(wire)
	}

	// Optimistic insert: user message plus assistant shell.
	next, pending := BeginTurn(conv, text)

	req := api.MessageRequest{Content: text}
	customized, _ := c.store.ModelsCustomized()
	if customized {
		req.CouncilModels, req.ChairmanModel = c.CouncilSelection()
	}

	streamCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.conv = next
	c.pending = &pending
	c.cancelTurn = cancel
	c.mu.Unlock()
	c.emit(ConversationUpdated{Conversation: next})

	go c.runTurn(streamCtx, next.ID, req, pending)
	return nil
}

// runTurn drives the stream for one turn and settles the pending pair.
func (c *Controller) runTurn(ctx context.Context, convID string, req api.MessageRequest, pending PendingTurn) {
	eventSeen := false
	var streamErr error

	err := c.client.StreamMessage(ctx, convID, req, func(event api.Event) {
		eventSeen = true

		// The backend reports deliberation failures in-band and then ends
		// the stream cleanly; keep the message for TurnDone.
		if ev, ok := event.(api.ErrorEvent); ok {
			streamErr = errors.New(ev.Message)
		}

		c.mu.Lock()
		if c.conv == nil || c.conv.ID != convID {
			// The user switched conversations mid-stream; drop the event.
			c.mu.Unlock()
			return
		}
		next := c.reducer.Apply(c.conv, event)
		c.conv = next
		c.mu.Unlock()

		c.emit(ConversationUpdated{Conversation: next})
	})

	c.mu.Lock()
	c.busy = false
	c.pending = nil
	c.cancelTurn = nil

	// The optimistic pair survives unless the request itself failed before
	// delivering anything; stages already shown are never torn down.
	if err != nil && !eventSeen && c.conv != nil && c.conv.ID == convID {
		c.conv = pending.Rollback(c.conv)
	}
	conv := c.conv
	c.mu.Unlock()

	if err != nil && !eventSeen {
		c.emit(ConversationUpdated{Conversation: conv})
	}
	if err == nil {
		err = streamErr
	}
	c.emit(TurnDone{Err: err})
}

// CancelTurn aborts the in-flight turn, if any. The server keeps whatever
// it has already persisted; stages already received stay visible.
func (c *Controller) CancelTurn() {
	c.mu.Lock()
	cancel := c.cancelTurn
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
