package notepath

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type fakeTree struct {
	parents    map[string][]string
	best       map[string][]string
	bestCalls  []string
	lastActive string
	failOn     string
}

func (f *fakeTree) Exists(ctx context.Context, id string) (bool, error) {
	if id == f.failOn {
		return false, errors.New("backend down")
	}
	_, ok := f.parents[id]
	return ok, nil
}

func (f *fakeTree) SortedParentNoteIDs(id string) []string {
	return f.parents[id]
}

func (f *fakeTree) BestNotePath(id, hoistedNoteID, activeNotePath string) []string {
	f.bestCalls = append(f.bestCalls, id+"@"+hoistedNoteID)
	f.lastActive = activeNotePath
	return f.best[id+"@"+hoistedNoteID]
}

func newFakeTree() *fakeTree {
	return &fakeTree{
		parents: map[string][]string{
			"root":  {},
			"a":     {"root"},
			"b":     {"a"},
			"P1":    {"root"},
			"P2":    {"root"},
			"C":     {"P2"},
			"H":     {"root"},
			"clone": {"a", "H"},
			"lost":  {},
		},
		best: map[string][]string{
			"a@root":     {"root", "a"},
			"b@root":     {"root", "a", "b"},
			"b@H":        {"root", "a", "b"},
			"C@root":     {"root", "P2", "C"},
			"clone@H":    {"root", "H", "clone"},
			"clone@root": {"root", "a", "clone"},
		},
	}
}

func TestResolveRootRoundTrip(t *testing.T) {
	resolver := NewResolver(newFakeTree(), nil, nil)
	got, err := resolver.ResolveString(context.Background(), "root", "root")
	if err != nil || got != "root" {
		t.Fatalf("expected root, got %q err=%v", got, err)
	}
}

func TestResolveValidPathNeedsNoRepair(t *testing.T) {
	tree := newFakeTree()
	resolver := NewResolver(tree, nil, nil)
	got, err := resolver.Resolve(context.Background(), "  root/a/b?viewMode=source ", "root")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"root", "a", "b"}) {
		t.Fatalf("unexpected path: %#v", got)
	}
	if len(tree.bestCalls) != 0 {
		t.Fatalf("valid path should not consult best paths, got %v", tree.bestCalls)
	}
}

func TestResolveEmptyPathIsSoftFailure(t *testing.T) {
	resolver := NewResolver(newFakeTree(), nil, nil)
	for _, input := range []string{"", "   ", "?x=1"} {
		got, err := resolver.Resolve(context.Background(), input, "root")
		if err != nil || got != nil {
			t.Fatalf("expected (nil, nil) for %q, got %#v %v", input, got, err)
		}
	}
}

func TestResolveRepairsStaleAncestor(t *testing.T) {
	tree := newFakeTree()
	resolver := NewResolver(tree, func() string { return "root/P2" }, nil)
	got, err := resolver.ResolveString(context.Background(), "root/P1/C", "root")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "root/P2/C" {
		t.Fatalf("expected repaired path, got %q", got)
	}
	if tree.lastActive != "root/P2" {
		t.Fatalf("expected active path hint to be passed, got %q", tree.lastActive)
	}
}

func TestResolveRepairsPathNotStartingAtRoot(t *testing.T) {
	resolver := NewResolver(newFakeTree(), nil, nil)
	got, err := resolver.ResolveString(context.Background(), "a/b", "root")
	if err != nil || got != "root/a/b" {
		t.Fatalf("expected root/a/b, got %q err=%v", got, err)
	}
}

func TestResolveDeletedLeafReturnsNil(t *testing.T) {
	resolver := NewResolver(newFakeTree(), nil, nil)
	got, err := resolver.Resolve(context.Background(), "root/a/gone", "root")
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil), got %#v %v", got, err)
	}
}

func TestResolveEmptySegmentReturnsNil(t *testing.T) {
	resolver := NewResolver(newFakeTree(), nil, nil)
	for _, input := range []string{"root/a/", "/"} {
		got, err := resolver.Resolve(context.Background(), input, "root")
		if err != nil || got != nil {
			t.Fatalf("expected (nil, nil) for %q, got %#v %v", input, got, err)
		}
	}
}

func TestResolveNoteWithoutParentsReturnsNil(t *testing.T) {
	resolver := NewResolver(newFakeTree(), nil, nil)
	got, err := resolver.Resolve(context.Background(), "root/lost", "root")
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil), got %#v %v", got, err)
	}
}

func TestResolvePrefersRouteThroughHoistedNote(t *testing.T) {
	resolver := NewResolver(newFakeTree(), nil, nil)
	got, err := resolver.ResolveString(context.Background(), "root/a/clone", "H")
	if err != nil || got != "root/H/clone" {
		t.Fatalf("expected root/H/clone, got %q err=%v", got, err)
	}
}

func TestResolveKeepsWalkedPathWhenHoistedNoteUnreachable(t *testing.T) {
	resolver := NewResolver(newFakeTree(), nil, nil)
	got, err := resolver.ResolveString(context.Background(), "root/a/b", "H")
	if err != nil || got != "root/a/b" {
		t.Fatalf("expected best-effort root/a/b, got %q err=%v", got, err)
	}
}

func TestResolveHardFailures(t *testing.T) {
	resolver := NewResolver(newFakeTree(), nil, nil)
	if _, err := resolver.Resolve(context.Background(), "gone", "root"); !errors.Is(err, ErrUnresolvable) {
		t.Fatalf("expected ErrUnresolvable for missing single segment, got %v", err)
	}
	// "b" exists but has no best path under a hoisted note it is not known to.
	if _, err := resolver.Resolve(context.Background(), "root/a/b", "X"); !errors.Is(err, ErrUnresolvable) {
		t.Fatalf("expected ErrUnresolvable when no path exists, got %v", err)
	}
}

func TestResolvePropagatesLookupErrors(t *testing.T) {
	tree := newFakeTree()
	tree.failOn = "b"
	resolver := NewResolver(tree, nil, nil)
	if _, err := resolver.Resolve(context.Background(), "root/a/b", "root"); err == nil {
		t.Fatalf("expected lookup error")
	}
}
