package booking

import (
	"encoding/json"
	"fmt"
	"strings"

	"ridedispatch/internal/types"
)

// DriverDirectory is an immutable mapping of short codes to driver
// identities, constructed once at process start. Lookup is by normalized
// (lowercased, trimmed) key. No dynamic registration exists.
type DriverDirectory struct {
	byKey map[string]types.DriverIdentity
}

// NewDriverDirectory parses the JSON directory mapping
// ({"key": {"name": ..., "email": ...}}) loaded from configuration.
// An empty string yields an empty directory, which is valid for
// single-driver deployments.
func NewDriverDirectory(directoryJSON string) (*DriverDirectory, error) {
	d := &DriverDirectory{byKey: make(map[string]types.DriverIdentity)}
	if directoryJSON == "" {
		return d, nil
	}

	var raw map[string]types.DriverIdentity
	if err := json.Unmarshal([]byte(directoryJSON), &raw); err != nil {
		return nil, fmt.Errorf("driver directory: invalid JSON: %w", err)
	}
	for key, identity := range raw {
		if identity.Email == "" {
			return nil, fmt.Errorf("driver directory: entry %q has no email", key)
		}
		d.byKey[normalizeDriverKey(key)] = identity
	}
	return d, nil
}

// Len returns the number of directory entries.
func (d *DriverDirectory) Len() int {
	return len(d.byKey)
}

// Resolve determines the notification recipient for a verified session's
// metadata bag.
//
// When a driverKey is present it is looked up in the directory; an unknown
// key is an event_unknown_driver error. When absent, the metadata-carried
// driverName/driverEmail are used directly, failing with
// event_driver_email_missing if the email is empty.
func (d *DriverDirectory) Resolve(md map[string]string) (types.DriverIdentity, error) {
	if key := md[keyDriverKey]; key != "" {
		identity, ok := d.byKey[normalizeDriverKey(key)]
		if !ok {
			return types.DriverIdentity{}, types.NewAppErrorWithDetails(
				types.ErrCodeEventUnknownDriver,
				fmt.Sprintf("unknown driver key %q", key),
				nil,
				map[string]any{"driver_key": key},
			)
		}
		return identity, nil
	}

	email := md[keyDriverEmail]
	if email == "" {
		return types.DriverIdentity{}, types.NewAppError(
			types.ErrCodeEventDriverEmailMissing,
			"metadata carries no driverEmail and no driverKey",
			nil,
		)
	}

	name := md[keyDriverName]
	if name == "" {
		name = "Driver"
	}
	return types.DriverIdentity{Name: name, Email: email}, nil
}

// normalizeDriverKey lowercases and trims a directory key so that lookups
// are insensitive to casing and stray whitespace in checkout input.
func normalizeDriverKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
