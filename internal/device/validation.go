package device

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength = 100
	maxSlugLength = 50
	slugPattern   = `^[a-z0-9]+(?:-[a-z0-9]+)*$`

	// maxConfigKeys bounds the config map to prevent memory exhaustion
	// via oversized API payloads.
	maxConfigKeys = 50

	maxPort = 65535
)

var slugRegex = regexp.MustCompile(slugPattern)

// Pre-computed validation sets for O(1) lookups.
var (
	validDeviceTypes  map[DeviceType]struct{}
	validHealthStatus map[HealthStatus]struct{}
)

func init() {
	validDeviceTypes = make(map[DeviceType]struct{}, len(AllDeviceTypes()))
	for _, t := range AllDeviceTypes() {
		validDeviceTypes[t] = struct{}{}
	}

	validHealthStatus = make(map[HealthStatus]struct{}, len(AllHealthStatuses()))
	for _, s := range AllHealthStatuses() {
		validHealthStatus[s] = struct{}{}
	}
}

// ValidateDevice performs validation on a device.
// Returns an error describing the first validation failure found.
func ValidateDevice(d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}

	if err := ValidateName(d.Name); err != nil {
		return err
	}

	// Validate slug if provided (empty slug will be generated)
	if d.Slug != "" {
		if err := ValidateSlug(d.Slug); err != nil {
			return err
		}
	}

	if err := ValidateDeviceType(d.Type); err != nil {
		return err
	}

	// Cameras need a reachable endpoint; sensors must not carry one.
	if d.Type.IsCamera() {
		if err := ValidateConnection(d.Connection); err != nil {
			return err
		}
	} else if d.Connection != nil {
		return fmt.Errorf("%w: %s devices do not take a connection", ErrInvalidConnection, d.Type)
	}

	if len(d.Config) > maxConfigKeys {
		return fmt.Errorf("%w: config exceeds max keys (%d)", ErrInvalidDevice, maxConfigKeys)
	}

	if d.HealthStatus != "" {
		if _, ok := validHealthStatus[d.HealthStatus]; !ok {
			return fmt.Errorf("%w: unknown health status %q", ErrInvalidDevice, d.HealthStatus)
		}
	}

	return nil
}

// ValidateName checks a device name is non-empty and within limits.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateSlug checks a slug is lowercase alphanumeric with hyphens.
func ValidateSlug(slug string) error {
	if len(slug) > maxSlugLength {
		return fmt.Errorf("%w: slug exceeds %d characters", ErrInvalidSlug, maxSlugLength)
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}
	return nil
}

// ValidateDeviceType checks a device type is recognised.
func ValidateDeviceType(t DeviceType) error {
	if _, ok := validDeviceTypes[t]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidDeviceType, t)
	}
	return nil
}

// ValidateConnection checks camera connection details.
func ValidateConnection(c *Connection) error {
	if c == nil {
		return fmt.Errorf("%w: camera requires a connection", ErrInvalidConnection)
	}
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidConnection)
	}
	if c.Port < 0 || c.Port > maxPort {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConnection, c.Port)
	}
	if c.Username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidConnection)
	}
	switch c.Auth {
	case "", "digest", "basic":
	default:
		return fmt.Errorf("%w: unknown auth scheme %q", ErrInvalidConnection, c.Auth)
	}
	return nil
}

// GenerateSlug creates a URL-safe slug from a name.
func GenerateSlug(name string) string {
	slug := strings.ToLower(name)

	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")

	// Remove any characters that aren't alphanumeric or hyphens
	var result strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	slug = result.String()

	// Remove leading/trailing hyphens and collapse multiple hyphens
	slug = strings.Trim(slug, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
		slug = strings.TrimRight(slug, "-")
	}

	return slug
}

// GenerateID creates a new UUID for a device.
func GenerateID() string {
	return uuid.New().String()
}
