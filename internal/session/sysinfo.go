package session

import (
	"os"
	"runtime"
)

// SystemInfo describes the host for the UI: platform, architecture, the
// default shell, and what else is launchable.
type SystemInfo struct {
	Platform         string   `json:"platform"`
	Arch             string   `json:"arch"`
	Shell            string   `json:"shell"`
	WorkingDirectory string   `json:"working_directory"`
	AvailableShells  []string `json:"available_shells"`
	TerminalProfiles []Shell  `json:"terminal_profiles"`
}

// Info probes the host once and returns the snapshot.
func Info() SystemInfo {
	shells := ListShells()
	names := make([]string, 0, len(shells))
	for _, sh := range shells {
		names = append(names, sh.Name)
	}
	wd, _ := os.Getwd()
	return SystemInfo{
		Platform:         runtime.GOOS,
		Arch:             runtime.GOARCH,
		Shell:            DefaultShell(),
		WorkingDirectory: wd,
		AvailableShells:  names,
		TerminalProfiles: shells,
	}
}
