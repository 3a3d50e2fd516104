package scanner

import (
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopGo = `package shop

import (
	"context"
	"io"
)

// Store persists orders.
type Store interface {
	Save(ctx context.Context, o *Order) error
	load(id string) (*Order, error)
}

// Order is a purchase.
type Order struct {
	ID    string
	Items []LineItem
	total int64
	io.Reader
}

type secret struct{ key string }

const Limit = 10

var defaultStore Store

// New builds an order.
func New(items ...LineItem) *Order {
	return &Order{Items: items}
}

func (o *Order) Total() Money { return Money(o.total) }

func (o *Order) recompute() {}

func Map[T any, R Result](in []T, fn func(T) R) map[string]R { return nil }
`

func TestGoSkeleton(t *testing.T) {
	data, err := Parse("shop.go", []byte(shopGo))
	require.NoError(t, err)

	skel := data.Skeleton
	for _, want := range []string{
		"package shop\n",
		"\t\"context\"\n\t\"io\"\n",
		"type Store interface {",
		"Save(ctx context.Context, o *Order) error",
		"type Order struct {",
		"Items []LineItem",
		"io.Reader",
		"const Limit = 10",
		"func New(items ...LineItem) *Order\n",
		"func (o *Order) Total() Money\n",
		"func Map[T any, R Result](in []T, fn func(T) R) map[string]R\n",
	} {
		assert.Contains(t, skel, want)
	}
	for _, hidden := range []string{"load(", "total int64", "secret", "defaultStore", "recompute", "return", "persists"} {
		assert.NotContains(t, skel, hidden)
	}

	assert.Equal(t, "shop", data.Package)
	assert.Equal(t, []string{"context", "io"}, data.Imports)
	assert.Equal(t, []string{"Store", "Order", "secret"}, data.Types)
}

func TestGoConstBlockKeepsValues(t *testing.T) {
	src := `package shop

type Status int

const (
	draft Status = iota
	Open
	Closed
)

const internal = 3
`
	data, err := Parse("status.go", []byte(src))
	require.NoError(t, err)

	assert.Contains(t, data.Skeleton, "Status = iota")
	assert.Contains(t, data.Skeleton, "\t_ ")
	assert.Contains(t, data.Skeleton, "\tOpen\n\tClosed\n)")
	assert.NotContains(t, data.Skeleton, "draft")
	assert.NotContains(t, data.Skeleton, "internal")

	_, err = parser.ParseFile(token.NewFileSet(), "status.go", data.Skeleton, 0)
	assert.NoError(t, err, "skeleton stays valid Go")
}

func TestGoReferencedTypes(t *testing.T) {
	data, err := Parse("shop.go", []byte(shopGo))
	require.NoError(t, err)
	assert.Equal(t, []string{"LineItem", "Money", "Order", "Result", "Store", "context.Context", "io.Reader"}, data.Referenced)
}

func TestGoMembers(t *testing.T) {
	data, err := Parse("shop.go", []byte(shopGo))
	require.NoError(t, err)

	total, err := data.FindMember("Order.Total", 0)
	require.NoError(t, err)
	assert.Equal(t, KindMethod, total.Kind)
	assert.False(t, total.HasDoc())
	assert.Equal(t, "func (o *Order) Total() Money", total.Signature)

	fn, err := data.FindMember("New", 0)
	require.NoError(t, err)
	assert.Equal(t, KindFunction, fn.Kind)
	require.True(t, fn.HasDoc())
	assert.Equal(t, "// New builds an order.", shopGo[fn.DocStart:fn.DocEnd])
	assert.True(t, strings.HasPrefix(shopGo[fn.Start:fn.End], "func New("))

	order, err := data.FindMember("Order", 0)
	require.NoError(t, err)
	assert.Equal(t, KindType, order.Kind)
	assert.Equal(t, "// Order is a purchase.", shopGo[order.DocStart:order.DocEnd])

	field, err := data.FindMember("Order.total", 0)
	require.NoError(t, err)
	assert.True(t, field.Private)

	rec, err := data.FindMember("recompute", 0)
	require.NoError(t, err)
	assert.True(t, rec.Private)
}

func TestParseUnsupported(t *testing.T) {
	_, err := Parse("notes.txt", []byte("hello"))
	assert.Error(t, err)
	assert.False(t, Supported("notes.txt"))
	assert.Equal(t, Java, LanguageOf("A.JAVA"))
}
