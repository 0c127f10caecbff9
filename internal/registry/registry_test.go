package registry

import (
	"context"
	"errors"
	"testing"
)

type memBackend struct {
	data   map[string]string
	stores int
	err    error
}

func (m *memBackend) LoadAll(ctx context.Context) (map[string]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

func (m *memBackend) Store(ctx context.Context, collectionType, collectionID string) error {
	if m.err != nil {
		return m.err
	}
	m.stores++
	if _, ok := m.data[collectionType]; !ok {
		m.data[collectionType] = collectionID
	}
	return nil
}

func TestRegistryLoadAndLookup(t *testing.T) {
	b := &memBackend{data: map[string]string{"0xa::foo::Foo": "0x1"}}
	r := New(b)

	if _, err := r.Lookup("0xa::foo::Foo"); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("Lookup before Load err = %v; want ErrUnknownType", err)
	}

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	id, err := r.Lookup("0xa::foo::Foo")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if id != "0x1" {
		t.Errorf("Lookup() = %q; want %q", id, "0x1")
	}
}

func TestRegistryRegisterIsAppendOnly(t *testing.T) {
	b := &memBackend{data: map[string]string{}}
	r := New(b)
	ctx := context.Background()

	if err := r.Register(ctx, "0xa::foo::Foo", "0x1"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(ctx, "0xa::foo::Foo", "0x2"); err != nil {
		t.Fatalf("second Register() error = %v", err)
	}

	id, err := r.Lookup("0xa::foo::Foo")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if id != "0x1" {
		t.Errorf("Lookup() = %q; want first registration %q", id, "0x1")
	}
	if b.stores != 1 {
		t.Errorf("backend stores = %d; want 1", b.stores)
	}
	if b.data["0xa::foo::Foo"] != "0x1" {
		t.Errorf("backend value = %q; want %q", b.data["0xa::foo::Foo"], "0x1")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d; want 1", r.Len())
	}
}

func TestRegistryBackendFailure(t *testing.T) {
	boom := errors.New("boom")
	b := &memBackend{data: map[string]string{}, err: boom}
	r := New(b)

	if err := r.Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Load() err = %v; want %v", err, boom)
	}
	if err := r.Register(context.Background(), "0xa::foo::Foo", "0x1"); !errors.Is(err, boom) {
		t.Fatalf("Register() err = %v; want %v", err, boom)
	}
	if _, err := r.Lookup("0xa::foo::Foo"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("failed Register must not update snapshot, Lookup err = %v", err)
	}
}
