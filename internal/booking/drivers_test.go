package booking

import (
	"errors"
	"testing"

	"ridedispatch/internal/types"
)

const testDirectoryJSON = `{
	"nice":   {"name": "A. Bruno", "email": "a.bruno@example.com"},
	"Cannes": {"name": "M. Leroy", "email": "m.leroy@example.com"}
}`

func TestNewDriverDirectory_Empty(t *testing.T) {
	d, err := NewDriverDirectory("")
	if err != nil {
		t.Fatalf("expected no error for empty directory, got %v", err)
	}
	if d.Len() != 0 {
		t.Errorf("expected empty directory, got %d entries", d.Len())
	}
}

func TestNewDriverDirectory_InvalidJSON(t *testing.T) {
	_, err := NewDriverDirectory("{not json")
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestNewDriverDirectory_EntryWithoutEmailRejected(t *testing.T) {
	_, err := NewDriverDirectory(`{"nice": {"name": "A. Bruno"}}`)
	if err == nil {
		t.Fatal("expected error for entry without email")
	}
}

func TestResolve_ByKey(t *testing.T) {
	d, err := NewDriverDirectory(testDirectoryJSON)
	if err != nil {
		t.Fatalf("directory: %v", err)
	}

	driver, err := d.Resolve(map[string]string{"driverKey": "nice"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if driver.Email != "a.bruno@example.com" {
		t.Errorf("unexpected email %q", driver.Email)
	}
	if driver.Name != "A. Bruno" {
		t.Errorf("unexpected name %q", driver.Name)
	}
}

func TestResolve_KeyLookupIsCaseInsensitive(t *testing.T) {
	d, _ := NewDriverDirectory(testDirectoryJSON)

	for _, key := range []string{"CANNES", "cannes", "  Cannes  "} {
		driver, err := d.Resolve(map[string]string{"driverKey": key})
		if err != nil {
			t.Errorf("key %q: expected no error, got %v", key, err)
			continue
		}
		if driver.Email != "m.leroy@example.com" {
			t.Errorf("key %q: unexpected email %q", key, driver.Email)
		}
	}
}

func TestResolve_UnknownKey(t *testing.T) {
	d, _ := NewDriverDirectory(testDirectoryJSON)

	_, err := d.Resolve(map[string]string{"driverKey": "marseille"})
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != types.ErrCodeEventUnknownDriver {
		t.Errorf("code %s, want %s", appErr.Code, types.ErrCodeEventUnknownDriver)
	}
}

func TestResolve_MetadataFallback(t *testing.T) {
	d, _ := NewDriverDirectory("")

	driver, err := d.Resolve(map[string]string{
		"driverName":  "P. Martin",
		"driverEmail": "p.martin@example.com",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if driver.Name != "P. Martin" || driver.Email != "p.martin@example.com" {
		t.Errorf("unexpected identity %+v", driver)
	}
}

func TestResolve_FallbackDefaultsName(t *testing.T) {
	d, _ := NewDriverDirectory("")

	driver, err := d.Resolve(map[string]string{"driverEmail": "p.martin@example.com"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if driver.Name != "Driver" {
		t.Errorf("expected default name, got %q", driver.Name)
	}
}

func TestResolve_NoKeyNoEmail(t *testing.T) {
	d, _ := NewDriverDirectory("")

	_, err := d.Resolve(map[string]string{})
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != types.ErrCodeEventDriverEmailMissing {
		t.Errorf("code %s, want %s", appErr.Code, types.ErrCodeEventDriverEmailMissing)
	}
}
