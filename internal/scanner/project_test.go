package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newShopProject(t *testing.T) (*Project, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "src/shop/Order.java", `package shop;

import billing.Invoice;

public class Order {
    public Customer customer;
    public Invoice invoice() { return null; }
}
`)
	writeFile(t, root, "src/shop/Customer.java", `package shop;

public class Customer {
    public String name() { return ""; }
    private void audit() {}
}
`)
	writeFile(t, root, "src/billing/Invoice.java", `package billing;

public class Invoice {
    public long amount() { return 0; }
}
`)
	writeFile(t, root, "src/other/Invoice.java", `package other;

public class Invoice {
    public void unrelated() {}
}
`)
	writeFile(t, root, "generated/Gen.java", "public class Gen {}\n")
	writeFile(t, root, "target/Built.java", "public class Built {}\n")
	writeFile(t, root, ".gitignore", "generated/\n")

	p, err := NewProject(root, WithWorkers(2))
	require.NoError(t, err)
	return p, root
}

func TestProjectScan(t *testing.T) {
	p, root := newShopProject(t)
	require.NoError(t, p.Scan(context.Background()))

	var rel []string
	for _, f := range p.Files() {
		r, err := filepath.Rel(root, f)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.Equal(t, []string{
		"src/billing/Invoice.java",
		"src/other/Invoice.java",
		"src/shop/Customer.java",
		"src/shop/Order.java",
	}, rel)

	assert.Len(t, p.Lookup("Invoice"), 2)
	assert.Len(t, p.Lookup("shop.Customer"), 1)
	assert.Empty(t, p.Lookup("Gen"))
}

func TestProjectContextFor(t *testing.T) {
	p, root := newShopProject(t)
	require.NoError(t, p.Scan(context.Background()))

	ctx, err := p.ContextFor(filepath.Join(root, "src/shop/Order.java"))
	require.NoError(t, err)

	assert.Contains(t, ctx, "public class Customer {")
	assert.Contains(t, ctx, "public String name();")
	assert.NotContains(t, ctx, "audit")
	// the import decides between the two Invoice classes
	assert.Contains(t, ctx, "public long amount();")
	assert.NotContains(t, ctx, "unrelated")
	assert.NotContains(t, ctx, "class Order")
}

func TestProjectGetAndInvalidate(t *testing.T) {
	p, root := newShopProject(t)
	path := filepath.Join(root, "src/shop/Customer.java")

	assert.False(t, p.Cached(path))
	first, err := p.Get("src/shop/Customer.java")
	require.NoError(t, err)
	assert.True(t, p.Cached(path))
	assert.Equal(t, path, first.Path)

	writeFile(t, root, "src/shop/Customer.java", "package shop;\n\npublic class Customer {\n    public int age() { return 1; }\n}\n")
	again, err := p.Get(path)
	require.NoError(t, err)
	assert.Same(t, first, again, "cache serves the entry until invalidated")

	p.Invalidate(path)
	fresh, err := p.Get(path)
	require.NoError(t, err)
	assert.Contains(t, fresh.Skeleton, "public int age();")

	_, err = p.Get("src/missing/Nope.java")
	assert.Error(t, err)
}

func TestProjectReloadReplacesStaleEntry(t *testing.T) {
	p, root := newShopProject(t)
	path := filepath.Join(root, "src/shop/Customer.java")

	stale, err := p.Get(path)
	require.NoError(t, err)
	writeFile(t, root, "src/shop/Customer.java", "package shop;\n\npublic class Customer {\n    public int age() { return 1; }\n}\n")

	fresh, err := p.Reload(path)
	require.NoError(t, err)
	assert.NotSame(t, stale, fresh)
	assert.Contains(t, fresh.Skeleton, "public int age();")
	cached, err := p.Get(path)
	require.NoError(t, err)
	assert.Same(t, fresh, cached)

	require.NoError(t, os.Remove(path))
	_, err = p.Reload(path)
	assert.Error(t, err)
	assert.False(t, p.Cached(path))
}

func TestProjectGetSkipsStoreAfterInvalidate(t *testing.T) {
	p, root := newShopProject(t)
	path := filepath.Join(root, "src/shop/Customer.java")

	gen := p.generation(path)
	data, err := p.load(path)
	require.NoError(t, err)
	p.Invalidate(path)

	assert.False(t, p.store(path, gen, data))
	assert.False(t, p.Cached(path))
	assert.True(t, p.store(path, p.generation(path), data))
}

func TestProjectMaxFileSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Big.java", "public class Big {"+strings.Repeat(" ", 200)+"}\n")
	p, err := NewProject(root, WithMaxFileSize(64))
	require.NoError(t, err)
	require.NoError(t, p.Scan(context.Background()))
	assert.Empty(t, p.Files())
}

func TestWatcherInvalidatesChangedFiles(t *testing.T) {
	p, root := newShopProject(t)
	require.NoError(t, p.Scan(context.Background()))
	path := filepath.Join(root, "src/shop/Customer.java")

	changed := make(chan []string, 4)
	w, err := p.Watch(context.Background(), WithDebounce(20*time.Millisecond), OnChange(func(paths []string) {
		changed <- paths
	}))
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, root, "src/shop/Customer.java", "package shop;\n\npublic class Customer {\n    public int age() { return 1; }\n}\n")

	select {
	case paths := <-changed:
		assert.Contains(t, paths, path)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
	require.Eventually(t, func() bool {
		data, err := p.Get(path)
		return err == nil && strings.Contains(data.Skeleton, "public int age();")
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcherStopsWithContext(t *testing.T) {
	p, _ := newShopProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	w, err := p.Watch(ctx)
	require.NoError(t, err)
	cancel()
	select {
	case <-w.done:
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not stop")
	}
	assert.NoError(t, w.Close())
}
