package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/voicedev/vox/internal/domain"
)

// storeFactories lets every contract test run against both backends
var storeFactories = map[string]func(t *testing.T) Store{
	"memory": func(t *testing.T) Store {
		return NewMemoryStore(0)
	},
	"sqlite": func(t *testing.T) Store {
		store, err := NewSQLiteStore(":memory:")
		if err != nil {
			t.Fatal(err)
		}
		return store
	},
}

func TestStore_CreateAndGet(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close()

			ctx := domain.Context{}.Add("project", "vox").Add("language", "go")
			sess, err := store.Create(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if sess.ID == "" {
				t.Fatal("session id should not be empty")
			}

			got, err := store.Get(sess.ID)
			if err != nil {
				t.Fatal(err)
			}
			if len(got.Context) != 2 {
				t.Errorf("context entries = %d, want 2", len(got.Context))
			}
			if v, _ := got.Context.Get("project"); v != "vox" {
				t.Errorf("context project = %q, want vox", v)
			}
			if len(got.History) != 0 {
				t.Errorf("new session history = %d entries, want 0", len(got.History))
			}
		})
	}
}

func TestStore_AppendPreservesOrder(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close()

			sess, err := store.Create(nil)
			if err != nil {
				t.Fatal(err)
			}

			for i := 0; i < 10; i++ {
				role := "user"
				if i%2 == 1 {
					role = "assistant"
				}
				if err := store.Append(sess.ID, role, fmt.Sprintf("message %d", i)); err != nil {
					t.Fatal(err)
				}
			}

			got, err := store.Get(sess.ID)
			if err != nil {
				t.Fatal(err)
			}
			if len(got.History) != 10 {
				t.Fatalf("history = %d entries, want 10", len(got.History))
			}
			for i, entry := range got.History {
				if entry.Content != fmt.Sprintf("message %d", i) {
					t.Errorf("entry %d = %q, out of order", i, entry.Content)
				}
			}
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close()

			if _, err := store.Get("nope"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get = %v, want ErrNotFound", err)
			}
			if err := store.Append("nope", "user", "hi"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Append = %v, want ErrNotFound", err)
			}
			if err := store.Delete("nope"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Delete = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close()

			sess, err := store.Create(nil)
			if err != nil {
				t.Fatal(err)
			}
			if err := store.Append(sess.ID, "user", "hello"); err != nil {
				t.Fatal(err)
			}

			if err := store.Delete(sess.ID); err != nil {
				t.Fatal(err)
			}
			if _, err := store.Get(sess.ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after delete = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_List(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close()

			first, _ := store.Create(nil)
			second, _ := store.Create(nil)
			store.Append(second.ID, "user", "one")
			store.Append(second.ID, "assistant", "two")

			summaries, err := store.List()
			if err != nil {
				t.Fatal(err)
			}
			if len(summaries) != 2 {
				t.Fatalf("summaries = %d, want 2", len(summaries))
			}

			counts := map[string]int{}
			for _, s := range summaries {
				counts[s.ID] = s.Entries
			}
			if counts[first.ID] != 0 {
				t.Errorf("first session entries = %d, want 0", counts[first.ID])
			}
			if counts[second.ID] != 2 {
				t.Errorf("second session entries = %d, want 2", counts[second.ID])
			}
		})
	}
}

func TestStore_ConcurrentAppends(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close()

			sess, err := store.Create(nil)
			if err != nil {
				t.Fatal(err)
			}

			const writers = 8
			const perWriter = 20

			var wg sync.WaitGroup
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWriter; i++ {
						if err := store.Append(sess.ID, "user", fmt.Sprintf("w%d-%d", w, i)); err != nil {
							t.Errorf("append: %v", err)
							return
						}
					}
				}(w)
			}
			wg.Wait()

			got, err := store.Get(sess.ID)
			if err != nil {
				t.Fatal(err)
			}
			if len(got.History) != writers*perWriter {
				t.Errorf("history = %d entries, want %d (no lost appends)", len(got.History), writers*perWriter)
			}
		})
	}
}

func TestMemoryStore_EvictsOldest(t *testing.T) {
	store := NewMemoryStore(3)
	defer store.Close()

	var ids []string
	for i := 0; i < 5; i++ {
		sess, err := store.Create(nil)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, sess.ID)
	}

	summaries, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 3 {
		t.Fatalf("sessions = %d, want 3 after eviction", len(summaries))
	}

	// The two oldest must be gone
	for _, id := range ids[:2] {
		if _, err := store.Get(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("oldest session %s should be evicted", id)
		}
	}
	for _, id := range ids[2:] {
		if _, err := store.Get(id); err != nil {
			t.Errorf("recent session %s should survive: %v", id, err)
		}
	}
}

func TestMemoryStore_GetReturnsSnapshot(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()

	sess, _ := store.Create(nil)
	store.Append(sess.ID, "user", "original")

	got, _ := store.Get(sess.ID)
	got.History[0].Content = "mutated"

	again, _ := store.Get(sess.ID)
	if again.History[0].Content != "original" {
		t.Error("mutating a snapshot must not affect the store")
	}
}

func TestStore_SaveAndListRuns(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close()

			sess, err := store.Create(nil)
			if err != nil {
				t.Fatal(err)
			}

			bound := &domain.PipelineRun{
				ID:     "run-1",
				Status: domain.PipelineCompleted,
				Results: []domain.AgentResult{
					{Role: domain.RoleArchitect, Output: "plan", Success: true},
				},
			}
			if err := store.SaveRun(sess.ID, bound); err != nil {
				t.Fatal(err)
			}

			// Runs without a session are allowed too
			unbound := &domain.PipelineRun{ID: "run-2", Status: domain.PipelineFailed}
			if err := store.SaveRun("", unbound); err != nil {
				t.Fatal(err)
			}

			runs, err := store.Runs(sess.ID)
			if err != nil {
				t.Fatal(err)
			}
			if len(runs) != 1 {
				t.Fatalf("runs = %d, want 1", len(runs))
			}
			if runs[0].ID != "run-1" || runs[0].Status != domain.PipelineCompleted {
				t.Errorf("run = %+v", runs[0])
			}
			if len(runs[0].Results) != 1 || runs[0].Results[0].Output != "plan" {
				t.Errorf("results = %+v, want the architect plan", runs[0].Results)
			}
		})
	}
}

func TestStore_RunsUnknownSession(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close()

			if err := store.SaveRun("nope", &domain.PipelineRun{ID: "r"}); !errors.Is(err, ErrNotFound) {
				t.Errorf("SaveRun = %v, want ErrNotFound", err)
			}
			if _, err := store.Runs("nope"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Runs = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_RunsSurviveSessionDelete(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close()

			sess, err := store.Create(nil)
			if err != nil {
				t.Fatal(err)
			}
			if err := store.SaveRun(sess.ID, &domain.PipelineRun{ID: "run-1", Status: domain.PipelineCompleted}); err != nil {
				t.Fatal(err)
			}

			if err := store.Delete(sess.ID); err != nil {
				t.Fatal(err)
			}

			// The run record outlives the session, unbound
			runs, err := store.Runs("")
			if err != nil {
				t.Fatal(err)
			}
			if len(runs) != 1 || runs[0].ID != "run-1" {
				t.Errorf("unbound runs = %+v, want the orphaned run", runs)
			}
		})
	}
}
