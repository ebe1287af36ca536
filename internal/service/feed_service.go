package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/urbispulse/internal/auth"
	"github.com/spec-kit/urbispulse/internal/domain"
	"github.com/spec-kit/urbispulse/internal/repository"
	apperrors "github.com/spec-kit/urbispulse/pkg/util"
)

// FeedTab selects one of the dashboard views.
type FeedTab string

const (
	TabAll      FeedTab = "all"
	TabPending  FeedTab = "pending"
	TabResolved FeedTab = "resolved"
	TabCritical FeedTab = "critical"
)

// ParseFeedTab validates a tab name; empty means all.
func ParseFeedTab(raw string) (FeedTab, error) {
	switch tab := FeedTab(strings.ToLower(strings.TrimSpace(raw))); tab {
	case "":
		return TabAll, nil
	case TabAll, TabPending, TabResolved, TabCritical:
		return tab, nil
	}
	return "", apperrors.NewValidationError("unknown feed tab", map[string]any{"tab": raw})
}

// FeedQuery narrows a feed read.
type FeedQuery struct {
	Tab    FeedTab
	Limit  int
	Offset int
}

// FeedItem is a visible complaint with the caller's engagement overlay.
type FeedItem struct {
	Complaint        domain.Complaint
	Upvoted          bool
	EffectiveUpvotes int
}

// FeedService projects the record store through the visibility rules.
type FeedService struct {
	complaints repository.ComplaintRepository
	upvotes    repository.UpvoteRepository
	logger     *zap.Logger
}

// FeedDependencies bundles collaborators for the feed.
type FeedDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	UpvoteRepo    repository.UpvoteRepository
	Logger        *zap.Logger
}

// NewFeedService constructs the service.
func NewFeedService(deps FeedDependencies) *FeedService {
	return &FeedService{
		complaints: deps.ComplaintRepo,
		upvotes:    deps.UpvoteRepo,
		logger:     loggerOrNop(deps.Logger),
	}
}

// Visible returns every complaint viewer may read, newest first. It never writes.
func (s *FeedService) Visible(ctx context.Context, viewer *domain.Viewer) ([]domain.Complaint, error) {
	return s.visible(ctx, viewer, repository.ComplaintFilter{})
}

func (s *FeedService) visible(ctx context.Context, viewer *domain.Viewer, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	if viewer.Authenticated() && viewer.Role == domain.RoleWardMember {
		filter.Ward = viewer.Ward
	}
	all, err := s.complaints.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	visible := make([]domain.Complaint, 0, len(all))
	for _, complaint := range all {
		if auth.CanView(viewer, complaint) {
			visible = append(visible, complaint)
		}
	}
	return visible, nil
}

// Feed returns one dashboard tab with per-item upvote state for viewer.
func (s *FeedService) Feed(ctx context.Context, viewer *domain.Viewer, query FeedQuery) ([]FeedItem, error) {
	filter := repository.ComplaintFilter{}
	switch query.Tab {
	case TabPending:
		filter.Statuses = pendingStatuses()
	case TabResolved:
		filter.Statuses = []domain.ComplaintStatus{domain.StatusResolved}
	case TabCritical:
		filter.Severities = []domain.Severity{domain.SeverityHigh}
	}

	complaints, err := s.visible(ctx, viewer, filter)
	if err != nil {
		return nil, err
	}
	complaints = page(complaints, query.Limit, query.Offset)

	marked := map[string]bool{}
	if viewer.Authenticated() && s.upvotes != nil && len(complaints) > 0 {
		ids := make([]string, len(complaints))
		for i, c := range complaints {
			ids[i] = c.ID
		}
		if marked, err = s.upvotes.MarkedSet(ctx, viewer.UserID, ids); err != nil {
			return nil, err
		}
	}

	items := make([]FeedItem, len(complaints))
	for i, c := range complaints {
		items[i] = FeedItem{
			Complaint:        c,
			Upvoted:          marked[c.ID],
			EffectiveUpvotes: effectiveCount(c.UpvoteCount, marked[c.ID]),
		}
	}
	return items, nil
}

func pendingStatuses() []domain.ComplaintStatus {
	out := make([]domain.ComplaintStatus, 0, len(domain.StatusOrder))
	for _, status := range domain.StatusOrder {
		if !status.IsTerminal() {
			out = append(out, status)
		}
	}
	return out
}

func page(complaints []domain.Complaint, limit, offset int) []domain.Complaint {
	if offset > 0 {
		if offset >= len(complaints) {
			return []domain.Complaint{}
		}
		complaints = complaints[offset:]
	}
	if limit > 0 && limit < len(complaints) {
		complaints = complaints[:limit]
	}
	return complaints
}

func effectiveCount(base int, marked bool) int {
	if marked {
		return base + 1
	}
	return base
}
