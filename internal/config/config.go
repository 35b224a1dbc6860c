package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config captures the runtime configuration for the Forseti service.
type Config struct {
	Addr           string
	StorageDir     string
	MaxUploadBytes int64

	JWTSecret string
	JWTTTL    time.Duration

	LockTTL time.Duration

	MirrorWorkers int

	CacheDir         string
	CacheMemoryItems int
	CacheTTL         time.Duration
}

// Load reads environment variables and falls back to sane defaults.
func Load() (Config, error) {
	addr := getEnv("FORSETI_ADDR", ":9090")
	storageDir := getEnv("FORSETI_STORAGE_PATH", filepath.Join(".", "storage"))

	maxUploadBytes := int64(10 * 1024 * 1024) // 10 MiB default, notes are text
	if raw := os.Getenv("FORSETI_MAX_UPLOAD_MB"); raw != "" {
		if mb, err := strconv.ParseInt(raw, 10, 64); err == nil && mb > 0 {
			maxUploadBytes = mb * 1024 * 1024
		}
	}

	cfg := Config{
		Addr:             addr,
		StorageDir:       storageDir,
		MaxUploadBytes:   maxUploadBytes,
		JWTSecret:        getEnv("FORSETI_JWT_SECRET", "laminotes_super_secret_key"),
		JWTTTL:           getEnvDuration("FORSETI_JWT_TTL", 7*24*time.Hour),
		LockTTL:          getEnvDuration("FORSETI_LOCK_TTL", 300*time.Second),
		MirrorWorkers:    getEnvInt("FORSETI_MIRROR_WORKERS", 4),
		CacheDir:         getEnv("FORSETI_CACHE_DIR", filepath.Join(storageDir, "cache")),
		CacheMemoryItems: getEnvInt("FORSETI_CACHE_MEMORY_ITEMS", 1024),
		CacheTTL:         getEnvDuration("FORSETI_CACHE_TTL", 5*time.Minute),
	}

	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return Config{}, fmt.Errorf("create storage dir: %w", err)
	}

	return cfg, nil
}

// VersionsDir is the root of the per-file version directories.
func (c Config) VersionsDir() string {
	return filepath.Join(c.StorageDir, "versions")
}

// UsersDir holds one JSON document per registered user.
func (c Config) UsersDir() string {
	return filepath.Join(c.StorageDir, "users")
}

// TeamsDir holds team documents and per-team mirror directories.
func (c Config) TeamsDir() string {
	return filepath.Join(c.StorageDir, "teams")
}

// TeamMembersDir holds one membership document per team.
func (c Config) TeamMembersDir() string {
	return filepath.Join(c.StorageDir, "team_members")
}

// InvitationsDir holds one JSON document per team invitation.
func (c Config) InvitationsDir() string {
	return filepath.Join(c.StorageDir, "invitations")
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}
