// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

// testParams keep argon2id fast in tests.
var testParams = Params{Time: 1, Memory: 64, Threads: 1}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(context.Background(), StoreConfig{
		Path:   filepath.Join(t.TempDir(), "users.db"),
		Params: testParams,
	})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRegisterAndAuthenticate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Register(ctx, "User@Example.com", "Passw0rd!"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		want     bool
	}{
		{"exact", "user@example.com", "Passw0rd!", true},
		{"case-insensitive email", "USER@example.COM", "Passw0rd!", true},
		{"wrong password", "user@example.com", "Passw0rd?", false},
		{"unknown email", "other@example.com", "Passw0rd!", false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ok, err := store.Authenticate(ctx, test.email, test.password)
			if err != nil {
				t.Fatalf("Authenticate: %v", err)
			}
			if ok != test.want {
				t.Errorf("Authenticate() = %v, want %v", ok, test.want)
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Register(ctx, "user@example.com", "Passw0rd!"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := store.Register(ctx, "USER@example.com", "Differ3nt!")
	if !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("second Register error = %v, want ErrDuplicateIdentity", err)
	}

	// The original password still works; the duplicate did not
	// overwrite it.
	ok, err := store.Authenticate(ctx, "user@example.com", "Passw0rd!")
	if err != nil || !ok {
		t.Errorf("Authenticate after duplicate = %v, %v", ok, err)
	}
}

func TestRegisterRejectsInvalidCredentials(t *testing.T) {
	store := openTestStore(t)
	for _, pair := range [][2]string{
		{"not-an-email", "Passw0rd!"},
		{"user@example.com", "weak"},
	} {
		if err := store.Register(context.Background(), pair[0], pair[1]); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Register(%q, %q) error = %v, want ErrInvalidCredentials", pair[0], pair[1], err)
		}
	}
}

func TestConcurrentRegistrationCreatesOneAccount(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Register(ctx, "race@example.com", "Passw0rd!")
		}()
	}
	wg.Wait()
	close(errs)

	created, duplicates := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrDuplicateIdentity):
			duplicates++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if created != 1 || duplicates != attempts-1 {
		t.Errorf("created = %d, duplicates = %d", created, duplicates)
	}
}

func TestStoredHashesAreSalted(t *testing.T) {
	first, err := newPasswordHash("Passw0rd!", testParams)
	if err != nil {
		t.Fatal(err)
	}
	second, err := newPasswordHash("Passw0rd!", testParams)
	if err != nil {
		t.Fatal(err)
	}
	if string(first.key) == string(second.key) {
		t.Error("identical passwords produced identical hashes")
	}
	if !first.matches("Passw0rd!") || first.matches("passw0rd!") {
		t.Error("matches() disagrees with the derived key")
	}
}
