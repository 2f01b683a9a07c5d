// Package shop implements the reward shop where stars buy tiger
// accessories, backgrounds and stories.
package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/hammamikhairi/vocalpal/internal/domain"
	"github.com/hammamikhairi/vocalpal/internal/logger"
)

// ItemType is the shop category, which decides the equip slot.
type ItemType int

const (
	ItemAccessory ItemType = iota
	ItemBackground
	ItemStory
)

// String returns a human-readable item type.
func (t ItemType) String() string {
	switch t {
	case ItemBackground:
		return "background"
	case ItemStory:
		return "story"
	default:
		return "accessory"
	}
}

// MarshalText encodes the type by name.
func (t ItemType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Item is one catalog entry.
type Item struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        ItemType `json:"type"`
	Cost        int      `json:"cost"`
	Description string   `json:"description"`
}

var catalog = []Item{
	{ID: "tiger-hat", Name: "Tiger Hat", Type: ItemAccessory, Cost: 5, Description: "A stylish red cap for your buddy!"},
	{ID: "sunglasses", Name: "Cool Shades", Type: ItemAccessory, Cost: 8, Description: "Looking cool in the jungle!"},
	{ID: "starry-sky", Name: "Starry Sky", Type: ItemBackground, Cost: 10, Description: "Practice under the stars!"},
	{ID: "beach", Name: "Sunny Beach", Type: ItemBackground, Cost: 12, Description: "Ocean waves and sandy fun!"},
	{ID: "jungle-tale-1", Name: "Tiger's Jungle Tale: Part 1", Type: ItemStory, Cost: 15, Description: "Join Tiger on his first adventure!"},
}

// Catalog returns every item in display order.
func Catalog() []Item {
	return append([]Item(nil), catalog...)
}

// Lookup finds an item by ID.
func Lookup(id string) (Item, bool) {
	for _, it := range catalog {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Listing is an item with the user's ownership flags.
type Listing struct {
	Item
	Unlocked bool `json:"unlocked"`
	Equipped bool `json:"equipped"`
}

// View is the shop as one user sees it.
type View struct {
	Stars int       `json:"stars"`
	Items []Listing `json:"items"`
}

// Shop reads and writes shop state through a progress store.
type Shop struct {
	store domain.ProgressStore
	log   *logger.Logger
}

// New creates a shop backed by store.
func New(store domain.ProgressStore, log *logger.Logger) *Shop {
	return &Shop{store: store, log: log}
}

// List returns the catalog with the user's unlocked and equipped flags.
func (s *Shop) List(ctx context.Context, userID string) (View, error) {
	snap, err := s.load(ctx, userID)
	if err != nil {
		return View{}, err
	}
	return viewOf(snap), nil
}

// Unlock buys an item, deducting its cost from the star balance. It
// returns the updated view.
func (s *Shop) Unlock(ctx context.Context, userID, itemID string) (View, error) {
	item, ok := Lookup(itemID)
	if !ok {
		return View{}, fmt.Errorf("unlock %q: %w", itemID, domain.ErrUnknownItem)
	}

	snap, err := s.load(ctx, userID)
	if err != nil {
		return View{}, err
	}
	if snap.HasUnlocked(item.ID) {
		return View{}, fmt.Errorf("unlock %q: %w", itemID, domain.ErrAlreadyUnlocked)
	}
	if snap.Stars < item.Cost {
		return View{}, fmt.Errorf("unlock %q (cost %d, have %d): %w", itemID, item.Cost, snap.Stars, domain.ErrNotEnoughStars)
	}

	stars := snap.Stars - item.Cost
	unlocked := append(append([]string(nil), snap.UnlockedItemIDs...), item.ID)
	update := domain.ProgressUpdate{Stars: &stars, UnlockedItemIDs: &unlocked}
	if err := s.save(ctx, userID, update); err != nil {
		return View{}, err
	}

	s.log.Info("%s unlocked %s for %d stars", userID, item.ID, item.Cost)
	return viewOf(snap.Merge(update)), nil
}

// Equip toggles an unlocked item in its slot: equipping replaces whatever
// held the slot, equipping the current item clears it.
func (s *Shop) Equip(ctx context.Context, userID, itemID string) (View, error) {
	item, ok := Lookup(itemID)
	if !ok {
		return View{}, fmt.Errorf("equip %q: %w", itemID, domain.ErrUnknownItem)
	}
	if item.Type == ItemStory {
		return View{}, fmt.Errorf("equip %q: %w", itemID, domain.ErrNotEquippable)
	}

	snap, err := s.load(ctx, userID)
	if err != nil {
		return View{}, err
	}
	if !snap.HasUnlocked(item.ID) {
		return View{}, fmt.Errorf("equip %q: %w", itemID, domain.ErrNotUnlocked)
	}

	var update domain.ProgressUpdate
	switch item.Type {
	case ItemAccessory:
		next := toggle(snap.EquippedAccessoryID, item.ID)
		update.EquippedAccessoryID = &next
	case ItemBackground:
		next := toggle(snap.EquippedBackgroundID, item.ID)
		update.EquippedBackgroundID = &next
	}
	if err := s.save(ctx, userID, update); err != nil {
		return View{}, err
	}

	merged := snap.Merge(update)
	s.log.Info("%s equipment: accessory=%q background=%q", userID, merged.EquippedAccessoryID, merged.EquippedBackgroundID)
	return viewOf(merged), nil
}

func (s *Shop) load(ctx context.Context, userID string) (domain.ProgressSnapshot, error) {
	snap, err := s.store.Load(ctx, userID)
	switch {
	case err == nil:
		return snap, nil
	case errors.Is(err, domain.ErrNotFound):
		return domain.NewSnapshot(userID), nil
	default:
		return domain.ProgressSnapshot{}, &domain.PersistenceError{Op: "load", UserID: userID, Err: err}
	}
}

func (s *Shop) save(ctx context.Context, userID string, update domain.ProgressUpdate) error {
	if err := s.store.Save(ctx, userID, update); err != nil {
		return &domain.PersistenceError{Op: "save", UserID: userID, Err: err}
	}
	return nil
}

func toggle(current, id string) string {
	if current == id {
		return ""
	}
	return id
}

func viewOf(snap domain.ProgressSnapshot) View {
	v := View{Stars: snap.Stars, Items: make([]Listing, 0, len(catalog))}
	for _, it := range catalog {
		v.Items = append(v.Items, Listing{
			Item:     it,
			Unlocked: snap.HasUnlocked(it.ID),
			Equipped: snap.EquippedAccessoryID == it.ID || snap.EquippedBackgroundID == it.ID,
		})
	}
	return v
}
