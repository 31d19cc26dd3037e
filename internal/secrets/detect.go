package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
)

// Backend names accepted by NewStore.
const (
	BackendAuto    = "auto"
	BackendKeyring = "keyring"
	BackendSystem  = "system"
	BackendFile    = "file"
	BackendMemory  = "memory"
)

// Backends lists the valid backend names.
var Backends = []string{BackendAuto, BackendKeyring, BackendSystem, BackendFile, BackendMemory}

// Options selects and configures a store backend.
type Options struct {
	Backend      string // one of Backends; empty means auto
	FilePath     string // file backend location; DefaultFilePath when empty
	FilePassword string // file backend password; MachinePassword when empty
	Logger       zerolog.Logger
}

// Warning markers, one per kind of warning.
const (
	warnFileFallback    = "file-fallback"
	warnMachinePassword = "machine-password"
)

// markerDir holds the marker files recording which warnings were shown.
var markerDir = func() string {
	return filepath.Join(xdg.DataHome, ServiceName)
}

func warningMarkerPath(name string) string {
	return filepath.Join(markerDir(), ".warned-"+name)
}

// warnOnce logs msg as a warning the first time the named warning is seen on
// this machine and at debug level afterwards. Each name has its own marker.
func warnOnce(log zerolog.Logger, name, msg string) {
	path := warningMarkerPath(name)
	if _, err := os.Stat(path); err == nil {
		log.Debug().Msg(msg)
		return
	}
	log.Warn().Msg(msg)
	_ = os.MkdirAll(filepath.Dir(path), 0700)
	_ = os.WriteFile(path, []byte("1"), 0600)
}

// NewStore creates a Store for the requested backend.
// In auto mode it tries the OS keyring first and falls back to the encrypted
// file when unavailable. WSL and headless environments go straight to the file.
func NewStore(opts Options) (Store, error) {
	log := opts.Logger

	switch opts.Backend {
	case BackendKeyring:
		log.Debug().Str("backend", BackendKeyring).Msg("opening store")
		return NewKeyringStore()
	case BackendSystem:
		log.Debug().Str("backend", BackendSystem).Msg("opening store")
		return NewSystemStore(), nil
	case BackendFile:
		log.Debug().Str("backend", BackendFile).Msg("opening store")
		return newFileStore(opts)
	case BackendMemory:
		log.Debug().Str("backend", BackendMemory).Msg("opening store")
		return NewMemoryStore(), nil
	case "", BackendAuto:
	default:
		return nil, fmt.Errorf("unknown backend %q (valid: %s)", opts.Backend, strings.Join(Backends, ", "))
	}

	if IsWSL() || IsHeadless() {
		warnOnce(log, warnFileFallback, "Detected WSL/headless environment, using encrypted file storage")
		return newFileStore(opts)
	}

	store, err := NewKeyringStore()
	if err != nil {
		warnOnce(log, warnFileFallback, fmt.Sprintf("Keyring unavailable (%v), falling back to encrypted file", err))
		return newFileStore(opts)
	}

	log.Debug().Str("backend", BackendKeyring).Msg("opening store")
	return store, nil
}

func newFileStore(opts Options) (*FileStore, error) {
	if opts.FilePassword == "" {
		warnOnce(opts.Logger, warnMachinePassword, "Using machine-specific encryption key. For better security, set NBSECRETS_STORE_PASSWORD.")
	}
	store, err := NewFileStore(opts.FilePath, opts.FilePassword)
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug().Str("backend", BackendFile).Str("path", store.Path()).Msg("opening store")
	return store, nil
}

// BackendName reports which backend a store returned by NewStore uses.
func BackendName(s Store) string {
	switch s.(type) {
	case *KeyringStore:
		return BackendKeyring
	case *SystemStore:
		return BackendSystem
	case *FileStore:
		return BackendFile
	case *MemoryStore:
		return BackendMemory
	case interface{ Unwrap() Store }:
		return BackendName(s.(interface{ Unwrap() Store }).Unwrap())
	default:
		return fmt.Sprintf("%T", s)
	}
}

// IsWSL returns true if running under Windows Subsystem for Linux.
func IsWSL() bool {
	if runtime.GOOS != "linux" {
		return false
	}

	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}

	version := strings.ToLower(string(data))
	return strings.Contains(version, "microsoft") || strings.Contains(version, "wsl")
}

// IsHeadless returns true if running in a headless environment (no display server).
// Only applicable on Linux; macOS and Windows are assumed to have GUI.
func IsHeadless() bool {
	if runtime.GOOS != "linux" {
		return false
	}

	return os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == ""
}
