package application

import (
	"context"
	"errors"
	"testing"
)

func TestUserService_CreateUser_RequiresValidator(t *testing.T) {
	t.Parallel()

	svc := NewUserService(newUserRepoStub(), nil, sequentialIDs("user"))

	_, err := svc.CreateUser(context.Background(), Principal{UserID: "user-1"}, UserInput{
		Email:       "new@lab.example",
		DisplayName: "New user",
		Password:    "correct horse",
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestUserService_CreateUser_ValidatesInput(t *testing.T) {
	t.Parallel()

	svc := NewUserService(newUserRepoStub(), nil, sequentialIDs("user"))

	_, err := svc.CreateUser(context.Background(), Principal{UserID: "op-1", IsValidator: true}, UserInput{
		Email:    "not-an-email",
		Password: "short",
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"email", "display_name", "password"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Fatalf("expected %s validation error, got %v", field, vErr.FieldErrors)
		}
	}
}

func TestUserService_CreateUser_HashesPassword(t *testing.T) {
	t.Parallel()

	repo := newUserRepoStub()
	svc := NewUserService(repo, nil, sequentialIDs("user"))

	user, err := svc.CreateUser(context.Background(), Principal{UserID: "op-1", IsValidator: true}, UserInput{
		Email:       "New@Lab.Example",
		DisplayName: "New user",
		Password:    "correct horse",
	})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	if user.Email != "new@lab.example" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	stored := repo.users[user.ID]
	if stored.PasswordHash == "correct horse" || stored.PasswordHash == "" {
		t.Fatal("expected password to be stored hashed")
	}
	if err := VerifyPassword(stored.PasswordHash, "correct horse"); err != nil {
		t.Fatalf("expected stored hash to verify, got %v", err)
	}
}

func TestUserService_UpdateUser_GuardsValidatorFlag(t *testing.T) {
	t.Parallel()

	repo := newUserRepoStub(seedUser(t, "owner@lab.example", "correct horse", false))
	svc := NewUserService(repo, nil, sequentialIDs("user"))

	_, err := svc.UpdateUser(context.Background(), Principal{UserID: "user-owner@lab.example"}, "user-owner@lab.example", UserInput{
		Email:       "owner@lab.example",
		DisplayName: "Owner",
		IsValidator: true,
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized when self-granting validator, got %v", err)
	}

	updated, err := svc.UpdateUser(context.Background(), Principal{UserID: "user-owner@lab.example"}, "user-owner@lab.example", UserInput{
		Email:       "owner@lab.example",
		DisplayName: "Renamed owner",
	})
	if err != nil {
		t.Fatalf("UpdateUser returned error: %v", err)
	}
	if updated.DisplayName != "Renamed owner" {
		t.Fatalf("expected display name update, got %q", updated.DisplayName)
	}
}
