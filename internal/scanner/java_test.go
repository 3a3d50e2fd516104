package scanner

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderJava = `package com.example.shop;

import java.util.List;
import java.util.Map;

/**
 * An order.
 */
@Entity
@Table(name = "orders")
public class Order extends BaseEntity implements Serializable, Comparable<Order> {
    public static final String PREFIX = "ORD-";
    private long secret = 42;
    protected List<? extends LineItem> items;
    Map<String, Customer[]> byName;

    public Order(Customer customer) {
        this.customer = customer;
    }

    /** Total in cents. */
    @Override
    public long total() throws PricingException {
        return 0;
    }

    private void hidden() {}

    public <T extends Discount> T apply(List<? super Coupon> coupons, T discount) {
        return discount;
    }

    public static class Builder {
        public Builder with(Address address) { return this; }
    }

    private static class Secret {
        public void leak(Token t) {}
    }
}
`

func TestJavaSkeleton(t *testing.T) {
	data, err := Parse("Order.java", []byte(orderJava))
	require.NoError(t, err)

	skel := data.Skeleton
	for _, want := range []string{
		"package com.example.shop;\n",
		"import java.util.List;\nimport java.util.Map;\n",
		"@Entity\n@Table(name = \"orders\")\npublic class Order extends BaseEntity implements Serializable, Comparable<Order> {\n",
		"    public static final String PREFIX;\n",
		"    protected List<? extends LineItem> items;\n",
		"    Map<String, Customer[]> byName;\n",
		"    public Order(Customer customer);\n",
		"    @Override\n    public long total() throws PricingException;\n",
		"    public <T extends Discount> T apply(List<? super Coupon> coupons, T discount);\n",
		"    public static class Builder {\n        public Builder with(Address address);\n    }\n",
	} {
		assert.Contains(t, skel, want)
	}
	for _, hidden := range []string{"secret", "hidden", "Secret", "leak", "return", "ORD-", "An order", "this.customer"} {
		assert.NotContains(t, skel, hidden)
	}
	assert.True(t, strings.HasSuffix(skel, "}\n"))

	assert.Equal(t, "com.example.shop", data.Package)
	assert.Equal(t, []string{"java.util.List", "java.util.Map"}, data.Imports)
	assert.Equal(t, []string{"Order", "Builder", "Secret"}, data.Types)
}

func TestJavaReferencedTypes(t *testing.T) {
	data, err := Parse("Order.java", []byte(orderJava))
	require.NoError(t, err)

	want := []string{
		"Address", "BaseEntity", "Builder", "Comparable", "Coupon", "Customer", "Discount",
		"LineItem", "List", "Map", "Order", "PricingException", "Serializable", "String", "Token",
	}
	if diff := cmp.Diff(want, data.Referenced); diff != "" {
		t.Errorf("referenced types mismatch (-want +got):\n%s", diff)
	}
}

func TestJavaReferencedUnwrapsWildcardsAndArrays(t *testing.T) {
	src := `class A {
    Map<? extends Key, List<? super Value[]>[]> m;
    Optional<?> any;
    int[][] grid;
}`
	data, err := Parse("A.java", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"Key", "List", "Map", "Optional", "Value"}, data.Referenced)
}

func TestJavaInterfaceAndEnum(t *testing.T) {
	src := `package p;

public interface Repo<T, ID> extends CrudRepository<T, ID>, Auditable {
    List<T> findAll(Sort sort);
    default int size() { return 0; }
}

enum Color implements Named {
    RED, GREEN;
    private final int code = 1;
    public String label() { return name(); }
}
`
	data, err := Parse("Repo.java", []byte(src))
	require.NoError(t, err)

	assert.Contains(t, data.Skeleton, "public interface Repo<T, ID> extends CrudRepository<T, ID>, Auditable {\n")
	assert.Contains(t, data.Skeleton, "    List<T> findAll(Sort sort);\n")
	assert.Contains(t, data.Skeleton, "    default int size();\n")
	assert.Contains(t, data.Skeleton, "enum Color implements Named {\n    RED, GREEN;\n")
	assert.Contains(t, data.Skeleton, "    public String label();\n")
	assert.NotContains(t, data.Skeleton, "code")

	assert.Equal(t, []string{"Auditable", "CrudRepository", "List", "Named", "Sort", "String"}, data.Referenced)
}

func TestJavaRecord(t *testing.T) {
	src := `public record Point(Coordinate x, Coordinate y) implements Shape {
    public double length() { return 0; }
}`
	data, err := Parse("Point.java", []byte(src))
	require.NoError(t, err)
	assert.Contains(t, data.Skeleton, "public record Point(Coordinate x, Coordinate y) implements Shape {\n")
	assert.Contains(t, data.Skeleton, "    public double length();\n")
	assert.Equal(t, []string{"Coordinate", "Shape"}, data.Referenced)
}

func TestJavaSkeletonWithSyntaxErrors(t *testing.T) {
	src := `public class Broken extends Base {
    public void ok() { int x = ; }
}`
	data, err := Parse("Broken.java", []byte(src))
	require.NoError(t, err)
	assert.Contains(t, data.Skeleton, "class Broken")
	assert.Contains(t, data.Skeleton, "extends Base")
	assert.NotContains(t, data.Skeleton, "int x")
}

func TestJavaMembers(t *testing.T) {
	data, err := Parse("Order.java", []byte(orderJava))
	require.NoError(t, err)

	total, err := data.FindMember("total", 0)
	require.NoError(t, err)
	assert.Equal(t, KindMethod, total.Kind)
	assert.Equal(t, "Order", total.Owner)
	assert.True(t, total.HasDoc())
	assert.Equal(t, "/** Total in cents. */", orderJava[total.DocStart:total.DocEnd])
	assert.True(t, strings.HasPrefix(orderJava[total.Start:total.End], "@Override"))
	assert.True(t, strings.HasSuffix(orderJava[total.Start:total.End], "}"))
	assert.Equal(t, "@Override public long total() throws PricingException;", total.Signature)

	order, err := data.FindMember("Order", 0)
	require.Error(t, err, "class and constructor share the name")
	assert.Contains(t, err.Error(), "ambiguous")
	_ = order

	with, err := data.FindMember("Order.Builder.with", 0)
	require.NoError(t, err)
	assert.False(t, with.HasDoc())

	hidden, err := data.FindMember("hidden", 0)
	require.NoError(t, err)
	assert.True(t, hidden.Private)

	// line lookup finds the innermost member
	line := lineAt([]byte(orderJava), strings.Index(orderJava, "return 0;"))
	byLine, err := data.FindMember("", line)
	require.NoError(t, err)
	assert.Equal(t, "total", byLine.Name)

	_, err = data.FindMember("missing", 0)
	assert.Error(t, err)
}

func lineAt(src []byte, offset int) int {
	return 1 + strings.Count(string(src[:offset]), "\n")
}
