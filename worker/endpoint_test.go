package worker_test

import (
	"testing"

	"github.com/momentics/serverino/worker"
)

func TestRegistry_OrdersByPriorityThenRegistration(t *testing.T) {
	reg := worker.NewRegistry()
	var order []string

	reg.Register(0, nil, "low", worker.OutputOnlyFunc(func(*worker.Output) { order = append(order, "low") }))
	reg.Register(10, nil, "high", worker.OutputOnlyFunc(func(*worker.Output) { order = append(order, "high") }))
	reg.Register(10, nil, "high2", worker.OutputOnlyFunc(func(*worker.Output) { order = append(order, "high2") }))

	matches := reg.Matching(worker.NewRequest(metaFor("GET", "/", nil), nil, "", false, nil))
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
	if matches[0].Name != "high" || matches[1].Name != "high2" || matches[2].Name != "low" {
		t.Fatalf("unexpected order: %v", []string{matches[0].Name, matches[1].Name, matches[2].Name})
	}
}

func TestRegistry_MatchFilters(t *testing.T) {
	reg := worker.NewRegistry()
	reg.Register(0, worker.PathEquals("/health"), "health", worker.OutputOnlyFunc(func(*worker.Output) {}))

	hit := worker.NewRequest(metaFor("GET", "/health", nil), nil, "", false, nil)
	miss := worker.NewRequest(metaFor("GET", "/other", nil), nil, "", false, nil)

	if len(reg.Matching(hit)) != 1 {
		t.Fatal("expected a match for /health")
	}
	if len(reg.Matching(miss)) != 0 {
		t.Fatal("expected no match for /other")
	}
}

func TestRegistry_RegisterRejectsUnsupportedSignature(t *testing.T) {
	reg := worker.NewRegistry()
	err := reg.Register(0, nil, "bad", func(int) {})
	if _, ok := err.(worker.UnsupportedHandlerError); !ok {
		t.Fatalf("expected UnsupportedHandlerError, got %v", err)
	}
}

func TestAnyOfAllOf(t *testing.T) {
	get := worker.MethodIs("GET")
	post := worker.MethodIs("POST")
	anyOf := worker.AnyOf(get, post)

	getReq := worker.NewRequest(metaFor("GET", "/", nil), nil, "", false, nil)
	putReq := worker.NewRequest(metaFor("PUT", "/", nil), nil, "", false, nil)

	if !anyOf(getReq) {
		t.Fatal("AnyOf should match GET")
	}
	if anyOf(putReq) {
		t.Fatal("AnyOf should not match PUT")
	}

	allOf := worker.AllOf(get, worker.PathEquals("/x"))
	if allOf(getReq) {
		t.Fatal("AllOf should require both predicates")
	}
}
