// Package resource reads and writes the script payload carried by a
// self-contained executable: a ZIP archive appended to the binary whose
// entry main.sym holds the bundled script.
//
// At startup a host resolves its own path with Self and passes it to Run
// together with its script runtime. Embed and Strip are the build-time
// side of the same protocol.
package resource

import (
	"errors"
	"fmt"
	"os"

	"github.com/Ning0612/sympack/internal/archive"
	"github.com/Ning0612/sympack/internal/domain"
	"github.com/Ning0612/sympack/internal/fsys"
	"github.com/Ning0612/sympack/internal/pathutil"
)

// PayloadName is the reserved entry holding the bundled script
const PayloadName = "main.sym"

// Resource errors - 資源錯誤
var (
	// ErrNoArchive indicates the executable carries no archive
	ErrNoArchive = errors.New("no resource archive")

	// ErrNoPayload indicates an archive without a main.sym entry
	ErrNoPayload = errors.New("no main script")

	// ErrPayloadInvalid indicates the runtime rejected the payload
	ErrPayloadInvalid = errors.New("invalid main script")
)

// Runtime is the script runtime that consumes the payload. chunkName
// identifies the payload in the runtime's diagnostics.
type Runtime interface {
	Load(chunkName string, payload []byte) error
}

// Self returns the resolved path of the running executable
func Self() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	return pathutil.Complete(exe), nil
}

// Load returns the decompressed main.sym entry of the archive appended
// to exePath
func Load(exePath string) ([]byte, error) {
	r, err := archive.OpenReader(exePath)
	if errors.Is(err, archive.ErrNoArchive) {
		return nil, fmt.Errorf("%w: %q: %w", ErrNoArchive, exePath, err)
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if err := r.LocateName(PayloadName); err != nil {
		return nil, fmt.Errorf("%w found in %q: %w", ErrNoPayload, exePath, err)
	}
	return r.ReadCurrent("")
}

// Run loads the payload of exePath and hands it to rt
func Run(exePath string, rt Runtime) error {
	payload, err := Load(exePath)
	if err != nil {
		return err
	}
	if err := rt.Load(PayloadName, payload); err != nil {
		return fmt.Errorf("%w: %w", ErrPayloadInvalid, err)
	}
	return nil
}

// Embed appends an archive holding scriptPath as main.sym to exePath.
// An archive already appended to exePath is removed first, so embedding
// twice replaces the payload.
func Embed(exePath, scriptPath string, level int) error {
	if !pathutil.IsFile(exePath) {
		return fmt.Errorf("%w: %s", domain.ErrNotFile, exePath)
	}
	script, err := fsys.ReadFile(scriptPath)
	if err != nil {
		return err
	}

	if err := Strip(exePath); err != nil && !errors.Is(err, ErrNoArchive) {
		return err
	}

	w, err := archive.OpenWriter(exePath, archive.ModeCreateAfter, level)
	if err != nil {
		return err
	}
	if err := w.Append(script, PayloadName, "", ""); err != nil {
		w.Close("")
		return err
	}
	return w.Close("")
}

// Strip removes the archive appended to exePath
func Strip(exePath string) error {
	err := archive.RemoveEmbeddedPayload(exePath)
	if errors.Is(err, archive.ErrNoArchive) {
		return fmt.Errorf("%w: %q: %w", ErrNoArchive, exePath, err)
	}
	return err
}
