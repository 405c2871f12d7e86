// Package cxdb stores error events in cxdb as system error items. An event
// linked to a context (aisen.WithContextID) is appended there; any other
// event starts an orphan context, or joins the one already opened for its
// fingerprint when grouping is on.
package cxdb

import (
	"context"
	"fmt"
	"sync"

	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"

	"github.com/strongdm/http-observe/pkg/aisen"
)

// CXDBClient is the part of *cxdbclient.Client the sink uses.
type CXDBClient interface {
	CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error)
	AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error)
}

// CXDBSinkOption configures the CXDB sink.
type CXDBSinkOption func(*cxdbSink)

// WithOrphanLabels sets labels for orphan error contexts.
func WithOrphanLabels(labels []string) CXDBSinkOption {
	return func(s *cxdbSink) {
		s.orphanLabels = labels
	}
}

// WithClientTag sets the client tag for orphan contexts.
func WithClientTag(tag string) CXDBSinkOption {
	return func(s *cxdbSink) {
		s.clientTag = tag
	}
}

// WithGroupByFingerprint makes orphan events that share a fingerprint append
// to one context, each turn following the previous one. At most maxGroups
// contexts are remembered; the oldest is forgotten first.
func WithGroupByFingerprint(maxGroups int) CXDBSinkOption {
	return func(s *cxdbSink) {
		if maxGroups > 0 {
			s.maxGroups = maxGroups
			s.groups = make(map[string]*group, maxGroups)
		}
	}
}

// group is the orphan context of one fingerprint and its latest turn.
type group struct {
	contextID uint64
	head      uint64
}

type cxdbSink struct {
	client       CXDBClient
	orphanLabels []string
	clientTag    string

	// mu serialises writes of grouped events so turns chain in order.
	mu        sync.Mutex
	maxGroups int
	groups    map[string]*group
	order     []string
}

// NewCXDBSink creates a sink that writes to cxdb.
func NewCXDBSink(client CXDBClient, opts ...CXDBSinkOption) aisen.Sink {
	s := &cxdbSink{
		client:       client,
		orphanLabels: []string{"error", "unlinked"},
		clientTag:    "aisen",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *cxdbSink) Write(ctx context.Context, event aisen.ErrorEvent) error {
	if event.ContextID != nil {
		_, err := s.append(ctx, *event.ContextID, 0, event, false)
		return err
	}
	if s.groups == nil || event.Fingerprint == "" {
		return s.writeOrphan(ctx, event)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if g, ok := s.groups[event.Fingerprint]; ok {
		res, err := s.append(ctx, g.contextID, g.head, event, false)
		if err != nil {
			return err
		}
		g.head = res.TurnID
		return nil
	}

	head, err := s.client.CreateContext(ctx, 0)
	if err != nil {
		return fmt.Errorf("create orphan context: %w", err)
	}
	res, err := s.append(ctx, head.ContextID, 0, event, true)
	if err != nil {
		return err
	}
	s.remember(event.Fingerprint, &group{contextID: head.ContextID, head: res.TurnID})
	return nil
}

func (s *cxdbSink) writeOrphan(ctx context.Context, event aisen.ErrorEvent) error {
	head, err := s.client.CreateContext(ctx, 0)
	if err != nil {
		return fmt.Errorf("create orphan context: %w", err)
	}
	_, err = s.append(ctx, head.ContextID, 0, event, true)
	return err
}

// remember must be called with mu held.
func (s *cxdbSink) remember(fingerprint string, g *group) {
	if len(s.order) >= s.maxGroups {
		delete(s.groups, s.order[0])
		s.order = s.order[1:]
	}
	s.groups[fingerprint] = g
	s.order = append(s.order, fingerprint)
}

func (s *cxdbSink) append(ctx context.Context, contextID, parent uint64, event aisen.ErrorEvent, orphan bool) (*cxdbclient.AppendResult, error) {
	payload, err := cxdbclient.EncodeMsgpack(s.conversationItem(event, orphan))
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	res, err := s.client.AppendTurn(ctx, &cxdbclient.AppendRequest{
		ContextID:      contextID,
		ParentTurnID:   parent,
		TypeID:         cxdtypes.TypeIDConversationItem,
		TypeVersion:    cxdtypes.TypeVersionConversationItem,
		Payload:        payload,
		IdempotencyKey: event.EventID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("append turn: %w", err)
	}
	return res, nil
}

func (s *cxdbSink) conversationItem(event aisen.ErrorEvent, orphan bool) *cxdtypes.ConversationItem {
	item := &cxdtypes.ConversationItem{
		ItemType:  cxdtypes.ItemTypeSystem,
		Status:    cxdtypes.ItemStatusComplete,
		Timestamp: event.Timestamp.UnixMilli(),
		ID:        event.EventID.String(),
		System: &cxdtypes.SystemMessage{
			Kind:    cxdtypes.SystemKindError,
			Title:   title(event),
			Content: details(event),
		},
	}

	// cxdb reads context metadata from the first turn only.
	if orphan {
		item.ContextMetadata = &cxdtypes.ContextMetadata{
			Labels:    s.orphanLabels,
			ClientTag: s.clientTag,
		}
	}
	return item
}

func (s *cxdbSink) Flush(ctx context.Context) error { return nil }

func (s *cxdbSink) Close() error { return nil }
