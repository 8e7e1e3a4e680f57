// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"os"
	"path/filepath"
	"testing"
)

// adapters returns one of each Store implementation, each backed by a
// fresh location, so the contract tests run against all of them.
func adapters(t *testing.T) map[string]Store {
	t.Helper()

	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	sqliteStore, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fileStore,
		"sqlite": sqliteStore,
	}
}

func TestStore_SetGetDelete(t *testing.T) {
	for name, store := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok := store.Get("access_token"); ok {
				t.Error("fresh store should not contain key")
			}

			if err := store.Set("access_token", "tok-1"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if v, ok := store.Get("access_token"); !ok || v != "tok-1" {
				t.Errorf("Get = (%q, %v), want (tok-1, true)", v, ok)
			}

			// Overwrite
			if err := store.Set("access_token", "tok-2"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if v, _ := store.Get("access_token"); v != "tok-2" {
				t.Errorf("Get after overwrite = %q, want tok-2", v)
			}

			if err := store.Delete("access_token"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, ok := store.Get("access_token"); ok {
				t.Error("key still present after Delete")
			}

			// Deleting a missing key is not an error
			if err := store.Delete("access_token"); err != nil {
				t.Errorf("Delete of missing key failed: %v", err)
			}
		})
	}
}

func TestStore_Clear(t *testing.T) {
	for name, store := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			store.Set("a", "1")
			store.Set("b", "2")

			if err := store.Clear(); err != nil {
				t.Fatalf("Clear failed: %v", err)
			}
			if _, ok := store.Get("a"); ok {
				t.Error("key survived Clear")
			}

			// Clearing an empty store must not fail (forced logout is
			// best-effort and may run twice).
			if err := store.Clear(); err != nil {
				t.Errorf("Clear of empty store failed: %v", err)
			}
		})
	}
}

func TestFileStore_ReloadsPersistedState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	first, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := first.Set("custom_api_url", "http://brain:9000"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	second, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if v, ok := second.Get("custom_api_url"); !ok || v != "http://brain:9000" {
		t.Errorf("reloaded value = (%q, %v), want (http://brain:9000, true)", v, ok)
	}
}

func TestFileStore_CorruptFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed on corrupt file: %v", err)
	}
	if _, ok := store.Get("anything"); ok {
		t.Error("corrupt store should present as empty")
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")

	first, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("OpenSQLiteStore failed: %v", err)
	}
	if err := first.Set("custom_api_url", "https://colab.example/ngrok"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	first.Close()

	second, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	if v, ok := second.Get("custom_api_url"); !ok || v != "https://colab.example/ngrok" {
		t.Errorf("value = (%q, %v), want persisted URL", v, ok)
	}
}
