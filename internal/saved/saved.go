// Package saved keeps each user's locally saved feed items and the credit
// reward that goes with saving one.
package saved

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hpratapsigh/creator-dashboard/internal/database"
	"github.com/hpratapsigh/creator-dashboard/internal/model"
	"github.com/hpratapsigh/creator-dashboard/internal/session"
)

// CreditReward is added to the user's credits when an item is first saved.
const CreditReward = 5

// Profiles is the part of the backend API the saved list depends on.
type Profiles interface {
	Me(ctx context.Context, token string) (*model.Profile, error)
	UpdateMe(ctx context.Context, token string, upd model.ProfileUpdate) error
}

// ToggleResult describes what Toggle did.
type ToggleResult struct {
	// Saved is true when the item was added, false when it was removed.
	Saved bool
	// Items is the local list after the change.
	Items []model.FeedItem
	// CreditErr is set when the item was added but the credit update failed.
	// The list change is kept.
	CreditErr error
}

// Service reads and mutates saved lists.
type Service struct {
	store database.Store
	api   Profiles
	log   *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Service.
func New(store database.Store, api Profiles, log *slog.Logger) *Service {
	return &Service{
		store: store,
		api:   api,
		log:   log,
		locks: make(map[string]*sync.Mutex),
	}
}

// lock serializes read-modify-write of one key inside this process.
func (s *Service) lock(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// List returns the local saved list of email.
func (s *Service) List(ctx context.Context, email string) ([]model.FeedItem, error) {
	return s.read(ctx, session.SavedFeedsKey(email))
}

func (s *Service) read(ctx context.Context, key string) ([]model.FeedItem, error) {
	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, database.ErrNotFound) {
		return []model.FeedItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	var items []model.FeedItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return items, nil
}

func (s *Service) write(ctx context.Context, key string, items []model.FeedItem) error {
	buf, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.store.Set(ctx, key, string(buf)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Toggle saves item if it is not in the user's local list, otherwise removes
// it. A save sends one credit update of previous credits plus CreditReward,
// where previous is the value read from the backend just before. A removal
// sends nothing.
func (s *Service) Toggle(ctx context.Context, token string, item model.FeedItem) (*ToggleResult, error) {
	profile, err := s.api.Me(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	key := session.SavedFeedsKey(profile.Email)
	unlock := s.lock(key)
	defer unlock()

	items, err := s.read(ctx, key)
	if err != nil {
		return nil, err
	}

	if i := indexOf(items, item.ID); i >= 0 {
		items = append(items[:i], items[i+1:]...)
		if err := s.write(ctx, key, items); err != nil {
			return nil, err
		}
		return &ToggleResult{Saved: false, Items: items}, nil
	}

	items = append(items, item)
	if err := s.write(ctx, key, items); err != nil {
		return nil, err
	}

	res := &ToggleResult{Saved: true, Items: items}
	credit := profile.Credits + CreditReward
	if err := s.api.UpdateMe(ctx, token, model.ProfileUpdate{Credit: &credit}); err != nil {
		s.log.Warn("saved item but failed to add credits",
			slog.String("item_id", item.ID),
			slog.Int("credit", credit),
			slog.Any("error", err))
		res.CreditErr = err
	}
	return res, nil
}

// Unsave removes id from the local list. Items that only exist in the
// backend's savedFeeds are not touched. It reports whether anything was
// removed.
func (s *Service) Unsave(ctx context.Context, token, id string) (bool, error) {
	profile, err := s.api.Me(ctx, token)
	if err != nil {
		return false, fmt.Errorf("fetch profile: %w", err)
	}

	key := session.SavedFeedsKey(profile.Email)
	unlock := s.lock(key)
	defer unlock()

	items, err := s.read(ctx, key)
	if err != nil {
		return false, err
	}
	i := indexOf(items, id)
	if i < 0 {
		return false, nil
	}
	items = append(items[:i], items[i+1:]...)
	return true, s.write(ctx, key, items)
}

// Import appends items whose ids are not yet saved locally. No credits are
// awarded. It returns how many were added.
func (s *Service) Import(ctx context.Context, email string, items []model.FeedItem) (int, error) {
	key := session.SavedFeedsKey(email)
	unlock := s.lock(key)
	defer unlock()

	current, err := s.read(ctx, key)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, it := range items {
		if it.ID == "" || indexOf(current, it.ID) >= 0 {
			continue
		}
		current = append(current, it)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, s.write(ctx, key, current)
}

// Rename moves the saved list of oldEmail to newEmail after an email
// change. Items already saved under newEmail stay first and ids present in
// both lists are kept once.
func (s *Service) Rename(ctx context.Context, oldEmail, newEmail string) error {
	from, to := session.SavedFeedsKey(oldEmail), session.SavedFeedsKey(newEmail)
	if from == to {
		return nil
	}

	// Lock in key order so two opposite renames cannot deadlock.
	first, second := from, to
	if second < first {
		first, second = second, first
	}
	unlockFirst := s.lock(first)
	defer unlockFirst()
	unlockSecond := s.lock(second)
	defer unlockSecond()

	moving, err := s.read(ctx, from)
	if err != nil {
		return err
	}
	if len(moving) == 0 {
		return nil
	}
	current, err := s.read(ctx, to)
	if err != nil {
		return err
	}
	for _, it := range moving {
		if indexOf(current, it.ID) < 0 {
			current = append(current, it)
		}
	}
	if err := s.write(ctx, to, current); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, from); err != nil {
		return fmt.Errorf("delete old saved list: %w", err)
	}
	s.log.Info("moved saved items to new email",
		slog.String("from", oldEmail),
		slog.String("to", newEmail),
		slog.Int("items", len(current)))
	return nil
}

// Merge returns the backend list followed by the local list. Duplicates are
// kept. Entries whose id is in the local list are marked removable.
func Merge(server, local []model.FeedItem) []model.SavedEntry {
	out := make([]model.SavedEntry, 0, len(server)+len(local))
	for _, it := range server {
		out = append(out, model.SavedEntry{FeedItem: it, Removable: indexOf(local, it.ID) >= 0})
	}
	for _, it := range local {
		out = append(out, model.SavedEntry{FeedItem: it, Removable: true})
	}
	return out
}

// Contains reports whether id is in items.
func Contains(items []model.FeedItem, id string) bool {
	return indexOf(items, id) >= 0
}

func indexOf(items []model.FeedItem, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
