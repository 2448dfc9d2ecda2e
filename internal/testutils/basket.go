package testutils

import (
	"fmt"

	"github.com/ahrav/go-washer/internal/domain"
)

// Basket builds a set of soiled laundry items with predictable IDs.
//
//	items := testutils.NewBasket().Towels(2, 1.5).Socks(4, domain.SizeM).Dirty(0.05).Items()
type Basket struct {
	items []*domain.Body
	count map[domain.FabricKind]int
}

// Default item volumes in liters.
const (
	SockVolume  domain.Volume = 0.1
	ShirtVolume domain.Volume = 0.6
)

// NewBasket creates an empty basket.
func NewBasket() *Basket {
	return &Basket{count: make(map[domain.FabricKind]int)}
}

func (b *Basket) nextID(kind domain.FabricKind) domain.BodyID {
	b.count[kind]++
	return domain.BodyID(fmt.Sprintf("%s-%d", kind, b.count[kind]))
}

// Towels adds n towels of the given volume.
func (b *Basket) Towels(n int, volume domain.Volume) *Basket {
	for range n {
		b.items = append(b.items, domain.NewTowel(b.nextID(domain.Towel), volume))
	}
	return b
}

// Socks adds n socks.
func (b *Basket) Socks(n int, size domain.ClothingSize) *Basket {
	for range n {
		b.items = append(b.items, domain.NewSock(b.nextID(domain.Sock), size, SockVolume))
	}
	return b
}

// Shirts adds n shirts.
func (b *Basket) Shirts(n int, size domain.ClothingSize) *Basket {
	for range n {
		b.items = append(b.items, domain.NewShirt(b.nextID(domain.Shirt), size, ShirtVolume))
	}
	return b
}

// Dirty stains every item added so far with amount liters of dirt.
func (b *Basket) Dirty(amount domain.Volume) *Basket {
	for _, it := range b.items {
		it.WithStain(domain.NewSubstance(domain.Dirt, amount, 20))
	}
	return b
}

// Items returns the items in the order they were added.
func (b *Basket) Items() []*domain.Body {
	return append([]*domain.Body(nil), b.items...)
}

// IDs returns the item IDs in the order they were added.
func (b *Basket) IDs() []domain.BodyID {
	ids := make([]domain.BodyID, len(b.items))
	for i, it := range b.items {
		ids[i] = it.ID()
	}
	return ids
}

// TotalStain sums the remaining stain of items.
func TotalStain(items []*domain.Body) domain.Volume {
	var total domain.Volume
	for _, it := range items {
		total += it.StainAmount()
	}
	return total
}
