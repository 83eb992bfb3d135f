package router

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"
)

const letterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func randKey(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[rand.Intn(len(letterBytes))]
	}
	return string(b)
}

// mock up a route table with a few broad routes and many per-job routes
func mockRouteTable() *Node[string] {
	tree := New[string]()
	tree.InsertAt(NS("progress"), "progress")
	for i := 0; i < 500; i++ {
		k := randKey(6)
		if rand.Intn(10) == 0 {
			tree.InsertAt(Namespace{"jobs", k}, fmt.Sprintf("job-%s", k))
		}
	}
	return tree
}

func TestStringToNamespace(t *testing.T) {
	testCases := []struct {
		s  string
		ns Namespace
	}{
		{s: "/", ns: Namespace{}},
		{s: "", ns: Namespace{}},
		{s: "/pets", ns: Namespace{"pets"}},
		{s: "pets", ns: Namespace{"pets"}},
		{s: "pets/", ns: Namespace{"pets"}},
		{s: "/pets/", ns: Namespace{"pets"}},
		{s: "/pets/cats", ns: Namespace{"pets", "cats"}},
		{s: "pets/cats/", ns: Namespace{"pets", "cats"}},
		{s: "/pets/dogs/terriers/", ns: Namespace{"pets", "dogs", "terriers"}},
	}
	for _, tc := range testCases {
		actual := NS(tc.s)
		if !reflect.DeepEqual(tc.ns, actual) {
			t.Errorf("for string %#v\nwant %#v\ngot  %#v", tc.s, tc.ns, actual)
		}
	}
}

func BenchmarkStringToNamespace(b *testing.B) {
	for i := 0; i < b.N; i++ {
		NS("/pets/dogs/terriers/")
	}
}

func TestNamespaceToString(t *testing.T) {
	testCases := []struct {
		ns Namespace
		s  string
	}{
		{ns: Namespace{}, s: "/"},
		{ns: Namespace{"pets"}, s: "/pets"},
		{ns: Namespace{"pets", "cats"}, s: "/pets/cats"},
		{ns: Namespace{"pets", "dogs", "terriers"}, s: "/pets/dogs/terriers"},
	}

	for _, tc := range testCases {
		actual := tc.ns.String()
		if actual != tc.s {
			t.Errorf("want %#v got %#v", tc.s, actual)
		}
	}
}

func TestNamespace(t *testing.T) {
	root := New[int]()
	foo := root.FindOrCreate(NS("foo"))
	bar3 := foo.FindOrCreate(NS("bar3"))
	hey1 := bar3.FindOrCreate(NS("hey1"))

	testCases := []struct {
		node     *Node[int]
		expectNS Namespace
	}{
		{node: hey1, expectNS: Namespace{"foo", "bar3", "hey1"}},
		{node: bar3, expectNS: Namespace{"foo", "bar3"}},
		{node: foo, expectNS: Namespace{"foo"}},
		{node: root, expectNS: Namespace{}},
	}

	for _, tc := range testCases {
		actualNS := tc.node.Namespace()
		if !reflect.DeepEqual(actualNS, tc.expectNS) {
			t.Errorf("wrong namespace - want %v got %v", tc.expectNS, actualNS)
		}
	}
}

func TestTraverseDown(t *testing.T) {
	root := New[int]()
	root.InsertAt(NS("/foo"), 1)
	root.InsertAt(NS("/foo/bar1"), 2)
	root.FindOrCreate(NS("/foo/bar2/empty"))
	root.InsertAt(NS("/baz"), 3)

	var visited, sum int
	root.TraverseDown(func(n *Node[int]) {
		visited++
		if v, ok := n.Value(); ok {
			sum += v
		}
	})
	if visited != 6 {
		t.Errorf("visited %d nodes, want 6", visited)
	}
	if sum != 6 {
		t.Errorf("sum of values: got %d want 6", sum)
	}
}

func TestLookup(t *testing.T) {
	root := New[string]()
	root.InsertAt(NS("/jobs"), "all-jobs")
	root.InsertAt(NS("/jobs/42"), "job-42")
	root.FindOrCreate(NS("/empty/branch"))

	testCases := []struct {
		path   string
		want   string
		wantNS Namespace
		found  bool
	}{
		{path: "/jobs", want: "all-jobs", wantNS: Namespace{"jobs"}, found: true},
		{path: "/jobs/41", want: "all-jobs", wantNS: Namespace{"jobs"}, found: true},
		{path: "/jobs/42", want: "job-42", wantNS: Namespace{"jobs", "42"}, found: true},
		{path: "/jobs/42/logs", want: "job-42", wantNS: Namespace{"jobs", "42"}, found: true},
		{path: "/empty/branch", found: false},
		{path: "/", found: false},
		{path: "/nope", found: false},
	}
	for _, tc := range testCases {
		n, ok := root.Lookup(NS(tc.path))
		if ok != tc.found {
			t.Errorf("%s: found=%v want %v", tc.path, ok, tc.found)
			continue
		}
		if !ok {
			continue
		}
		if v, _ := n.Value(); v != tc.want {
			t.Errorf("%s: got %q want %q", tc.path, v, tc.want)
		}
		if got := n.Namespace(); !reflect.DeepEqual(got, tc.wantNS) {
			t.Errorf("%s: namespace got %v want %v", tc.path, got, tc.wantNS)
		}
	}
}

func BenchmarkLookup(b *testing.B) {
	rt := mockRouteTable()
	target := NS("/progress/anything")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rt.Lookup(target)
	}
}

func BenchmarkTraverseDown(b *testing.B) {
	rt := mockRouteTable()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rt.TraverseDown(func(*Node[string]) {})
	}
}
