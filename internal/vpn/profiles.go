package vpn

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// SanitizeProfileName strips path traversal characters from a profile
// name. An empty result is invalid.
func SanitizeProfileName(name string) (string, error) {
	cleaned := strings.NewReplacer("/", "", "\\", "", "..", "").Replace(name)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "", ErrInvalidName
	}
	return cleaned, nil
}

// ValidateProfileContent checks that content is WireGuard-shaped: an
// interface section and at least one peer section.
func ValidateProfileContent(content string) error {
	if !strings.Contains(content, "[Interface]") || !strings.Contains(content, "[Peer]") {
		return ErrInvalidProfile
	}
	return nil
}

// AddProfile stores a new named profile.
func (m *Manager) AddProfile(name, content string) (string, error) {
	name, err := SanitizeProfileName(name)
	if err != nil {
		return "", err
	}
	if err := ValidateProfileContent(content); err != nil {
		return "", err
	}
	if m.profileExists(name) {
		return "", fmt.Errorf("%w: %s", ErrProfileExists, name)
	}

	if err := os.MkdirAll(m.cfg.ProfilesDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create profiles dir: %w", err)
	}
	if err := os.WriteFile(m.cfg.ProfilePath(name), []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("failed to write profile %s: %w", name, err)
	}

	m.logger.Info("added vpn profile", "profile", name)
	return name, nil
}

// DeleteProfile removes a stored profile. The active profile cannot be
// deleted; disconnect first.
func (m *Manager) DeleteProfile(name string) error {
	if !m.profileExists(name) {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}

	pol, err := m.store.Load()
	if err != nil {
		return err
	}
	if pol.ActiveVPN == name {
		return fmt.Errorf("%w: %s", ErrProfileActive, name)
	}

	if err := os.Remove(m.cfg.ProfilePath(name)); err != nil {
		return fmt.Errorf("failed to delete profile %s: %w", name, err)
	}

	m.logger.Info("deleted vpn profile", "profile", name)
	return nil
}

// ListProfiles describes every stored profile, flagging the current and
// live one.
func (m *Manager) ListProfiles() ([]ProfileInfo, error) {
	pol, err := m.store.Load()
	if err != nil {
		return nil, err
	}

	up, _, _, err := m.wg.DeviceInfo(m.cfg.WGInterface)
	if err != nil {
		m.logger.Debug("could not query tunnel state", "error", err)
	}

	names := m.ProfileNames()
	sort.Strings(names)

	infos := make([]ProfileInfo, 0, len(names))
	for _, name := range names {
		isCurrent := pol.ActiveVPN == name
		infos = append(infos, ProfileInfo{
			Name:      name,
			Filename:  name + ".conf",
			Active:    up && isCurrent,
			IsCurrent: isCurrent,
		})
	}
	return infos, nil
}
