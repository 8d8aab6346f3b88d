// Package catalog serves the static sample cards and loans and masks their
// sensitive fields until the owner unlocks them.
package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"vaultline/pkg/domain"
	"vaultline/pkg/platform/sentinel"

	dErrors "vaultline/pkg/domain-errors"
)

// Entity is a card or loan with its sensitive fields in the clear.
type Entity struct {
	ID           domain.EntityID
	Kind         domain.EntityKind
	Title        string
	Balance      string
	DueDate      string
	Number       string
	SecurityCode string
	HolderName   string
	Expiry       string
}

// SampleEntities returns the demo data set.
func SampleEntities() []Entity {
	return []Entity{
		{ID: "card_1", Kind: domain.KindCard, Title: "Platinum Card", Balance: "$2,500.00", DueDate: "2026-11-15",
			Number: "4532 8812 0945 1234", SecurityCode: "123", HolderName: "Alex Morgan", Expiry: "08/28"},
		{ID: "card_2", Kind: domain.KindCard, Title: "Gold Card", Balance: "$1,250.50", DueDate: "2026-11-20",
			Number: "5412 7534 9021 5678", SecurityCode: "456", HolderName: "Alex Morgan", Expiry: "02/27"},
		{ID: "card_3", Kind: domain.KindCard, Title: "Travel Rewards", Balance: "$820.00", DueDate: "2026-11-28",
			Number: "3782 8224 6310 9012", SecurityCode: "789", HolderName: "Alex Morgan", Expiry: "11/29"},
		{ID: "loan_1", Kind: domain.KindLoan, Title: "Home Loan", Balance: "$15,000.00", DueDate: "2026-12-01",
			Number: "7700 1200 3344 4321", SecurityCode: "321", HolderName: "Alex Morgan", Expiry: "12/45"},
		{ID: "loan_2", Kind: domain.KindLoan, Title: "Auto Loan", Balance: "$8,400.00", DueDate: "2026-12-05",
			Number: "7700 5600 7788 8765", SecurityCode: "654", HolderName: "Alex Morgan", Expiry: "06/30"},
	}
}

// Provider is a read-only, in-memory catalog.
type Provider struct {
	byID  map[domain.EntityID]Entity
	order []domain.EntityID
}

func NewProvider(entities []Entity) (*Provider, error) {
	p := &Provider{byID: make(map[domain.EntityID]Entity, len(entities))}
	for _, e := range entities {
		kind, ok := e.ID.Kind()
		if !ok || kind != e.Kind {
			return nil, fmt.Errorf("entity %q does not match kind %q", e.ID, e.Kind)
		}
		if _, dup := p.byID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate entity %q", e.ID)
		}
		p.byID[e.ID] = e
		p.order = append(p.order, e.ID)
	}
	return p, nil
}

// List returns the entities of kind in catalog order.
func (p *Provider) List(_ context.Context, kind domain.EntityKind) []Entity {
	var out []Entity
	for _, id := range p.order {
		if e := p.byID[id]; e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (p *Provider) Get(_ context.Context, id domain.EntityID) (Entity, error) {
	e, ok := p.byID[id]
	if !ok {
		return Entity{}, fmt.Errorf("entity %s: %w", id, sentinel.ErrNotFound)
	}
	return e, nil
}

func (p *Provider) Exists(_ context.Context, id domain.EntityID) bool {
	_, ok := p.byID[id]
	return ok
}

func (p *Provider) SecurityCode(ctx context.Context, id domain.EntityID) (string, error) {
	e, err := p.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return e.SecurityCode, nil
}

// IDs returns every id in catalog order.
func (p *Provider) IDs() []domain.EntityID {
	return slices.Clone(p.order)
}

// View is the presentable form of an Entity.
type View struct {
	ID           domain.EntityID   `json:"id"`
	Kind         domain.EntityKind `json:"kind"`
	Title        string            `json:"title"`
	Balance      string            `json:"balance"`
	DueDate      string            `json:"due_date"`
	Number       string            `json:"number"`
	SecurityCode string            `json:"security_code"`
	HolderName   string            `json:"holder_name"`
	Expiry       string            `json:"expiry"`
	Unlocked     bool              `json:"unlocked"`
}

const (
	maskedSecurityCode = "•••"
	maskedHolderName   = "•••• ••••"
	maskedExpiry       = "••/••"
)

// Present reveals sensitive fields only when unlocked.
func Present(e Entity, unlocked bool) View {
	v := View{
		ID:       e.ID,
		Kind:     e.Kind,
		Title:    e.Title,
		Balance:  e.Balance,
		DueDate:  e.DueDate,
		Unlocked: unlocked,
	}
	if unlocked {
		v.Number = e.Number
		v.SecurityCode = e.SecurityCode
		v.HolderName = e.HolderName
		v.Expiry = e.Expiry
		return v
	}
	v.Number = MaskNumber(e.Number)
	v.SecurityCode = maskedSecurityCode
	v.HolderName = maskedHolderName
	v.Expiry = maskedExpiry
	return v
}

// MaskNumber keeps the last four digits: "•••• •••• •••• 1234".
func MaskNumber(number string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	last := digits
	if len(last) > 4 {
		last = last[len(last)-4:]
	}
	return "•••• •••• •••• " + last
}

// PathSegment is the collection name for kind in URLs, e.g. "cards".
func PathSegment(kind domain.EntityKind) string {
	return string(kind) + "s"
}

// Resolve parses rawID and returns the entity only when it is of kind.
func (p *Provider) Resolve(ctx context.Context, kind domain.EntityKind, rawID string) (Entity, error) {
	id, err := domain.ParseEntityID(rawID)
	if err != nil {
		return Entity{}, err
	}
	if k, _ := id.Kind(); k != kind {
		return Entity{}, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("%s not found", kind))
	}
	e, err := p.Get(ctx, id)
	if err != nil {
		return Entity{}, dErrors.Wrap(err, dErrors.CodeNotFound, fmt.Sprintf("%s not found", kind))
	}
	return e, nil
}
