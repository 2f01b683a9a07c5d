package shop

import (
	"context"
	"errors"
	"testing"

	"github.com/hammamikhairi/vocalpal/internal/domain"
	"github.com/hammamikhairi/vocalpal/internal/logger"
	"github.com/hammamikhairi/vocalpal/internal/storage"
)

func setupShop(t *testing.T, stars int) (*Shop, *storage.MemoryStore, context.Context) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	store := storage.NewMemoryStore(log)
	ctx := context.Background()
	if err := store.Save(ctx, "kid", domain.CountersUpdate(0, stars, 1)); err != nil {
		t.Fatal(err)
	}
	return New(store, log), store, ctx
}

func listing(v View, id string) Listing {
	for _, l := range v.Items {
		if l.ID == id {
			return l
		}
	}
	return Listing{}
}

func TestUnlock(t *testing.T) {
	s, store, ctx := setupShop(t, 18)

	view, err := s.Unlock(ctx, "kid", "beach")
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if view.Stars != 6 {
		t.Fatalf("stars = %d, want 6", view.Stars)
	}
	if !listing(view, "beach").Unlocked {
		t.Fatal("beach not marked unlocked")
	}

	snap, _ := store.Load(ctx, "kid")
	if snap.Stars != 6 || !snap.HasUnlocked("beach") {
		t.Fatalf("store not updated: %+v", snap)
	}

	tests := []struct {
		name string
		id   string
		want error
	}{
		{"already unlocked", "beach", domain.ErrAlreadyUnlocked},
		{"too expensive", "jungle-tale-1", domain.ErrNotEnoughStars},
		{"unknown", "rocket", domain.ErrUnknownItem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Unlock(ctx, "kid", tt.id); !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}

	snap, _ = store.Load(ctx, "kid")
	if snap.Stars != 6 {
		t.Fatalf("failed unlocks changed stars to %d", snap.Stars)
	}
}

func TestEquipToggles(t *testing.T) {
	s, _, ctx := setupShop(t, 40)
	for _, id := range []string{"tiger-hat", "sunglasses", "beach"} {
		if _, err := s.Unlock(ctx, "kid", id); err != nil {
			t.Fatalf("unlock %s: %v", id, err)
		}
	}

	view, err := s.Equip(ctx, "kid", "tiger-hat")
	if err != nil {
		t.Fatal(err)
	}
	if !listing(view, "tiger-hat").Equipped {
		t.Fatal("hat not equipped")
	}

	// Same slot: replaces.
	view, _ = s.Equip(ctx, "kid", "sunglasses")
	if listing(view, "tiger-hat").Equipped || !listing(view, "sunglasses").Equipped {
		t.Fatal("sunglasses should replace the hat")
	}

	// Other slot: independent.
	view, _ = s.Equip(ctx, "kid", "beach")
	if !listing(view, "sunglasses").Equipped || !listing(view, "beach").Equipped {
		t.Fatal("background should not clear the accessory")
	}

	// Equipping again clears.
	view, _ = s.Equip(ctx, "kid", "beach")
	if listing(view, "beach").Equipped {
		t.Fatal("second equip should clear the slot")
	}
}

func TestEquipErrors(t *testing.T) {
	s, _, ctx := setupShop(t, 40)
	if _, err := s.Unlock(ctx, "kid", "jungle-tale-1"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		id   string
		want error
	}{
		{"jungle-tale-1", domain.ErrNotEquippable},
		{"starry-sky", domain.ErrNotUnlocked},
		{"nope", domain.ErrUnknownItem},
	}
	for _, tt := range tests {
		if _, err := s.Equip(ctx, "kid", tt.id); !errors.Is(err, tt.want) {
			t.Errorf("Equip(%s) = %v, want %v", tt.id, err, tt.want)
		}
	}
}

func TestListNewUser(t *testing.T) {
	s, _, ctx := setupShop(t, 0)
	view, err := s.List(ctx, "stranger")
	if err != nil {
		t.Fatal(err)
	}
	if view.Stars != 0 || len(view.Items) != 5 {
		t.Fatalf("view = %+v", view)
	}
	for _, l := range view.Items {
		if l.Unlocked || l.Equipped {
			t.Fatalf("new user owns %s", l.ID)
		}
	}
}

type failingStore struct{}

func (failingStore) Load(context.Context, string) (domain.ProgressSnapshot, error) {
	return domain.ProgressSnapshot{}, errors.New("backend down")
}

func (failingStore) Save(context.Context, string, domain.ProgressUpdate) error {
	return errors.New("backend down")
}

func TestPersistenceFailure(t *testing.T) {
	s := New(failingStore{}, logger.New(logger.LevelOff, nil))
	_, err := s.List(context.Background(), "kid")
	var perr *domain.PersistenceError
	if !errors.As(err, &perr) || perr.Op != "load" {
		t.Fatalf("error = %v, want load PersistenceError", err)
	}
}
