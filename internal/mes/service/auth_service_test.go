package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cuttingtoolsjd-ai/JDMES/internal/config"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/entity"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/repository"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/testutil"
)

func TestValidPIN(t *testing.T) {
	cases := map[string]bool{
		"000000":  true,
		"123456":  true,
		"12345":   false,
		"1234567": false,
		"12a456":  false,
		"":        false,
	}
	for pin, want := range cases {
		if got := validPIN(pin); got != want {
			t.Errorf("validPIN(%q) = %v, want %v", pin, got, want)
		}
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedTestUser(t, db, "SUSHIL BABAR", entity.RoleOperator)
	svc := NewAuthService(repository.NewUserRepository(db), nil, &config.Config{})
	ctx := context.Background()

	_, _, err := svc.Login(ctx, "SUSHIL BABAR", "12345")
	if !errors.Is(err, ErrPINFormat) {
		t.Errorf("Expected ErrPINFormat, got %v", err)
	}

	// 用户不存在与PIN错误返回同一错误，不泄露用户是否存在
	_, _, err = svc.Login(ctx, "NOBODY", "000000")
	if !errors.Is(err, ErrInvalidPIN) {
		t.Errorf("Expected ErrInvalidPIN for unknown user, got %v", err)
	}
	_, _, err = svc.Login(ctx, "SUSHIL BABAR", "999999")
	if !errors.Is(err, ErrInvalidPIN) {
		t.Errorf("Expected ErrInvalidPIN for wrong pin, got %v", err)
	}
}

func TestSetPINClearsMustChange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	user := testutil.SeedTestUser(t, db, "A", entity.RoleOperator)
	db.Model(user).Update("must_change_pin", true)

	svc := NewAuthService(repository.NewUserRepository(db), nil, &config.Config{})
	ctx := context.Background()

	if err := svc.SetPIN(ctx, "A", "12345"); !errors.Is(err, ErrPINFormat) {
		t.Errorf("Expected ErrPINFormat, got %v", err)
	}
	if err := svc.SetPIN(ctx, "NOBODY", "123456"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
	if err := svc.SetPIN(ctx, "A", "123456"); err != nil {
		t.Fatalf("SetPIN failed: %v", err)
	}

	var updated entity.User
	db.Where("username = ?", "A").First(&updated)
	if updated.PIN != "123456" {
		t.Errorf("Expected PIN updated, got %q", updated.PIN)
	}
	if updated.MustChangePIN {
		t.Error("Expected must_change_pin cleared after PIN change")
	}
}
