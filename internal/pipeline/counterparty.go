package pipeline

import (
	"fmt"
	"math/rand/v2"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/erp/datasynth/internal/idgen"
	"github.com/erp/datasynth/internal/lineitem"
)

// CounterpartyKind is the business role of the other side of a record.
type CounterpartyKind string

const (
	CounterpartyVendor   CounterpartyKind = "vendor"
	CounterpartyCustomer CounterpartyKind = "customer"
	CounterpartyEmployee CounterpartyKind = "employee"
)

// Counterparty is the other side of a record.
type Counterparty struct {
	ID   uuid.UUID        `json:"id" yaml:"id"`
	Kind CounterpartyKind `json:"kind" yaml:"kind"`
	Name string           `json:"name" yaml:"name"`
}

// counterpartyNames maps each kind to the faker call naming it.
var counterpartyNames = map[CounterpartyKind]func(*gofakeit.Faker) string{
	CounterpartyVendor:   func(f *gofakeit.Faker) string { return f.Company() },
	CounterpartyCustomer: func(f *gofakeit.Faker) string { return f.Company() },
	CounterpartyEmployee: func(f *gofakeit.Faker) string { return f.Name() },
}

var counterpartyNamespaces = map[CounterpartyKind]idgen.Namespace{
	CounterpartyVendor:   idgen.NamespaceVendor,
	CounterpartyCustomer: idgen.NamespaceCustomer,
	CounterpartyEmployee: idgen.NamespaceEmployee,
}

// counterpartyGenerator names counterparties for one worker stream. The
// faker draws from its own seeded source, so names replay with the run.
type counterpartyGenerator struct {
	faker     *gofakeit.Faker
	factories map[CounterpartyKind]*idgen.Factory
}

func newCounterpartyGenerator(src rand.Source, idSeed uint64) *counterpartyGenerator {
	factories := make(map[CounterpartyKind]*idgen.Factory, len(counterpartyNamespaces))
	for kind, ns := range counterpartyNamespaces {
		factories[kind] = idgen.NewFactory(idSeed, ns)
	}
	return &counterpartyGenerator{
		faker:     gofakeit.NewFaker(src, false),
		factories: factories,
	}
}

// kindFor picks the counterparty role from the record shape: debit-heavy
// records are purchases, credit-heavy ones are sales, and balanced ones are
// internal postings such as payroll.
func kindFor(t lineitem.DebitCreditType) CounterpartyKind {
	switch t {
	case lineitem.MoreDebit:
		return CounterpartyVendor
	case lineitem.MoreCredit:
		return CounterpartyCustomer
	default:
		return CounterpartyEmployee
	}
}

// Generate names the counterparty for the record at counter.
func (g *counterpartyGenerator) Generate(kind CounterpartyKind, counter uint64) (Counterparty, error) {
	nameFn, ok := counterpartyNames[kind]
	if !ok {
		return Counterparty{}, fmt.Errorf("unknown counterparty kind: %s", kind)
	}
	return Counterparty{
		ID:   g.factories[kind].GenerateAt(counter),
		Kind: kind,
		Name: nameFn(g.faker),
	}, nil
}
