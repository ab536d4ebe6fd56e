package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/actions"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/backend"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/config"
)

// Profile is the CLI configuration stored in ~/.harvey/config.toml.
type Profile struct {
	Backend ProfileBackend `toml:"backend"`
	Agent   ProfileAgent   `toml:"agent"`
	Auth    ProfileAuth    `toml:"auth"`
}

type ProfileBackend struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

type ProfileAgent struct {
	AgentName   string `toml:"agent_name"`
	Brokerage   string `toml:"brokerage"`
	DefaultArea string `toml:"default_area"`
}

// ProfileAuth is only used by `harveyctl token` against a development console.
type ProfileAuth struct {
	JWTSecret   string `toml:"jwt_secret"`
	OperatorID  string `toml:"operator_id"`
	WorkspaceID string `toml:"workspace_id"`
	Role        string `toml:"role"`
}

func profileDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".harvey")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("cannot create profile directory: %w", err)
	}
	return dir, nil
}

func profilePath() (string, error) {
	dir, err := profileDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// loadProfile returns a zero Profile when the file does not exist.
func loadProfile() (*Profile, error) {
	path, err := profilePath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Profile{}, nil
		}
		return nil, fmt.Errorf("cannot read profile: %w", err)
	}
	var p Profile
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("cannot parse profile: %w", err)
	}
	return &p, nil
}

func saveProfile(p *Profile) error {
	path, err := profilePath()
	if err != nil {
		return err
	}
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("cannot marshal profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("cannot write profile: %w", err)
	}
	return nil
}

// setProfileValue sets a field using dot notation (e.g. "backend.base_url").
func setProfileValue(p *Profile, key, value string) error {
	section, field, ok := strings.Cut(key, ".")
	if !ok {
		return fmt.Errorf("key must use dot notation: section.field (e.g. backend.base_url)")
	}

	switch section {
	case "backend":
		switch field {
		case "base_url":
			p.Backend.BaseURL = value
		case "timeout":
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("backend.timeout: %w", err)
			}
			p.Backend.Timeout = value
		default:
			return fmt.Errorf("unknown field %q in section [backend]", field)
		}
	case "agent":
		switch field {
		case "agent_name":
			p.Agent.AgentName = value
		case "brokerage":
			p.Agent.Brokerage = value
		case "default_area":
			p.Agent.DefaultArea = value
		default:
			return fmt.Errorf("unknown field %q in section [agent]", field)
		}
	case "auth":
		switch field {
		case "jwt_secret":
			p.Auth.JWTSecret = value
		case "operator_id":
			p.Auth.OperatorID = value
		case "workspace_id":
			p.Auth.WorkspaceID = value
		case "role":
			p.Auth.Role = value
		default:
			return fmt.Errorf("unknown field %q in section [auth]", field)
		}
	default:
		return fmt.Errorf("unknown profile section %q (valid: backend, agent, auth)", section)
	}
	return nil
}

// baseURL resolves the backend: flag, then profile, then BACKEND_BASE_URL, then the default.
func (p *Profile) baseURL() string {
	for _, v := range []string{flagBaseURL, p.Backend.BaseURL, os.Getenv("BACKEND_BASE_URL")} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return config.DefaultBackendBaseURL
}

func (p *Profile) client() *backend.Client {
	timeout := config.DefaultBackendTimeout
	if d, err := time.ParseDuration(p.Backend.Timeout); err == nil && d > 0 {
		timeout = d
	}
	return backend.NewClient(backend.WithBaseURL(p.baseURL()), backend.WithTimeout(timeout))
}

func (p *Profile) settings() actions.Settings {
	s := actions.Settings{
		AgentName:   p.Agent.AgentName,
		Brokerage:   p.Agent.Brokerage,
		DefaultArea: p.Agent.DefaultArea,
	}
	if s.AgentName == "" {
		s.AgentName = config.DefaultAgentName
	}
	if s.Brokerage == "" {
		s.Brokerage = config.DefaultBrokerage
	}
	if s.DefaultArea == "" {
		s.DefaultArea = config.DefaultArea
	}
	return s
}
