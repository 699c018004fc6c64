package store

import (
	"errors"
	"testing"
)

func TestCreateAndGetUser(t *testing.T) {
	st, ctx := openStore(t)

	created, err := st.CreateUser(ctx, "wallet1", "alice", "https://pics/alice.png")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.Username != "alice" || created.WalletAddress != "wallet1" {
		t.Fatalf("created = %+v", created)
	}

	got, err := st.GetUserByWallet(ctx, "wallet1")
	if err != nil {
		t.Fatalf("get by wallet: %v", err)
	}
	if got.Username != "alice" || got.ProfilePictureURL != "https://pics/alice.png" {
		t.Fatalf("got = %+v", got)
	}

	if _, err := st.GetUserByWallet(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUsernameAvailability(t *testing.T) {
	st, ctx := openStore(t)

	if _, err := st.CreateUser(ctx, "wallet1", "alice", ""); err != nil {
		t.Fatalf("create user: %v", err)
	}

	free, err := st.IsUsernameAvailable(ctx, "alice", "")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if free {
		t.Fatal("taken username reported available")
	}

	// The owner can keep their own name.
	free, err = st.IsUsernameAvailable(ctx, "alice", "wallet1")
	if err != nil {
		t.Fatalf("availability with exclude: %v", err)
	}
	if !free {
		t.Fatal("owner blocked from their own username")
	}

	free, err = st.IsUsernameAvailable(ctx, "bob", "")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if !free {
		t.Fatal("fresh username reported taken")
	}
}

func TestUpdateUserPatchesFields(t *testing.T) {
	st, ctx := openStore(t)

	if _, err := st.CreateUser(ctx, "wallet1", "alice", "pic1"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	newName := "alice2"
	updated, err := st.UpdateUser(ctx, "wallet1", &newName, nil)
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if updated.Username != "alice2" {
		t.Fatalf("username = %q, want alice2", updated.Username)
	}
	if updated.ProfilePictureURL != "pic1" {
		t.Fatalf("picture = %q, want untouched pic1", updated.ProfilePictureURL)
	}

	if _, err := st.UpdateUser(ctx, "missing", &newName, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
