package session

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
)

// Shell describes a launchable shell for the UI: display name, resolved
// executable path, the conventional interactive argument vector, and an
// icon hint.
type Shell struct {
	Name string   `json:"name"`
	Path string   `json:"path"`
	Args []string `json:"args"`
	Icon string   `json:"icon"`
}

// windowsShells are the candidates probed on Windows hosts.
var windowsShells = []string{"cmd.exe", "powershell.exe", "pwsh.exe", "bash.exe", "wsl.exe"}

// posixShells are probed on PATH in addition to /etc/shells entries.
var posixShells = []string{"bash", "zsh", "fish", "sh"}

// ListShells enumerates the known shells on this host. The result is
// non-empty on any supported platform.
func ListShells() []Shell {
	if runtime.GOOS == "windows" {
		return listWindowsShells()
	}
	return listPosixShells()
}

func listWindowsShells() []Shell {
	shells := make([]Shell, 0, len(windowsShells))
	for _, name := range windowsShells {
		path, err := exec.LookPath(name)
		if err != nil {
			continue
		}
		shells = append(shells, descriptor(path))
	}
	if len(shells) == 0 {
		shells = append(shells, descriptor("cmd.exe"))
	}
	return shells
}

func listPosixShells() []Shell {
	seen := make(map[string]bool)
	var shells []Shell

	for _, path := range readEtcShells() {
		if seen[path] {
			continue
		}
		seen[path] = true
		shells = append(shells, descriptor(path))
	}
	for _, name := range posixShells {
		path, err := exec.LookPath(name)
		if err != nil || seen[path] {
			continue
		}
		seen[path] = true
		shells = append(shells, descriptor(path))
	}
	if len(shells) == 0 {
		shells = append(shells, descriptor("/bin/sh"))
	}
	return shells
}

// readEtcShells returns the non-comment, non-empty entries of /etc/shells.
func readEtcShells() []string {
	data, err := os.ReadFile("/etc/shells")
	if err != nil {
		return nil
	}
	var entries []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	return entries
}

// DefaultShell returns the default shell for the current user. Windows
// consults COMSPEC then SHELL; POSIX consults SHELL then the passwd entry.
func DefaultShell() string {
	if runtime.GOOS == "windows" {
		if comspec := os.Getenv("COMSPEC"); comspec != "" {
			return comspec
		}
		if shell := os.Getenv("SHELL"); shell != "" {
			return shell
		}
		return "powershell.exe"
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	if shell := passwdShell(); shell != "" {
		return shell
	}
	return "bash"
}

// passwdShell reads the current user's login shell from /etc/passwd.
func passwdShell() string {
	usr, err := user.Current()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile("/etc/passwd")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Split(line, ":")
		if len(fields) >= 7 && fields[0] == usr.Username {
			return strings.TrimSpace(fields[6])
		}
	}
	return ""
}

// ResolveShell canonicalizes a raw shell identifier (name or path) to an
// executable path plus its conventional interactive argument vector.
func ResolveShell(raw string) (string, []string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil, fmt.Errorf("%w: empty shell", ErrShellNotFound)
	}

	var path string
	if strings.ContainsRune(raw, os.PathSeparator) || filepath.IsAbs(raw) {
		info, err := os.Stat(raw)
		if err != nil || info.IsDir() {
			return "", nil, fmt.Errorf("%w: %s", ErrShellNotFound, raw)
		}
		path = raw
	} else {
		resolved, err := exec.LookPath(raw)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %s", ErrShellNotFound, raw)
		}
		path = resolved
	}
	return path, interactiveArgs(shellName(path)), nil
}

// interactiveArgs returns the conventional argument vector that keeps the
// given shell interactive after startup.
func interactiveArgs(name string) []string {
	switch name {
	case "cmd":
		return []string{"/k"}
	case "powershell", "pwsh":
		return []string{"-NoLogo", "-NoProfile", "-NoExit"}
	case "bash", "zsh", "fish", "sh", "wsl":
		return nil
	default:
		return nil
	}
}

// shellName reduces an executable path to its canonical shell name.
func shellName(path string) string {
	name := strings.ToLower(filepath.Base(path))
	return strings.TrimSuffix(name, ".exe")
}

func descriptor(path string) Shell {
	name := shellName(path)
	return Shell{
		Name: name,
		Path: path,
		Args: interactiveArgs(name),
		Icon: name,
	}
}

// defaultEnv is appended to every interactive session's environment.
func defaultEnv() []string {
	return []string{"TERM=xterm-256color"}
}

// homeDir returns the user's home directory, used when a create request
// leaves the working directory empty.
func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if home := os.Getenv("USERPROFILE"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return "."
}
