package cron

import "testing"

func TestRegistrySkipsNilAndPreservesOrder(t *testing.T) {
	first := &testJob{name: "first"}
	second := &testJob{name: "second"}
	registry := NewRegistry(first, nil)
	registry.Register(nil)
	registry.Register(second)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].Name() != "first" || jobs[1].Name() != "second" {
		t.Fatalf("unexpected order: %s, %s", jobs[0].Name(), jobs[1].Name())
	}

	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatal("Jobs must return a copy")
	}
}
