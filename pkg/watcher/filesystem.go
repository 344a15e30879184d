package watcher

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemType classifies the filesystem holding a watched path.
// Remote and FUSE filesystems get polling because inotify events are
// unreliable or absent there.
type FilesystemType int

const (
	FSTypeUnknown FilesystemType = iota
	FSTypeLocal
	FSTypeNFS
	FSTypeSMB
	FSTypeSSHFS
	FSTypeFUSE
)

func (t FilesystemType) String() string {
	switch t {
	case FSTypeLocal:
		return "local"
	case FSTypeNFS:
		return "nfs"
	case FSTypeSMB:
		return "smb"
	case FSTypeSSHFS:
		return "sshfs"
	case FSTypeFUSE:
		return "fuse"
	default:
		return "unknown"
	}
}

// Remote reports whether the filesystem type needs the polling fallback.
func (t FilesystemType) Remote() bool {
	switch t {
	case FSTypeNFS, FSTypeSMB, FSTypeSSHFS, FSTypeFUSE:
		return true
	default:
		return false
	}
}

// DetectFilesystemType classifies the filesystem containing path by
// matching it against the mount table. On platforms without
// /proc/self/mounts it returns FSTypeUnknown, which is treated as local.
func DetectFilesystemType(path string) FilesystemType {
	if path == "" {
		return FSTypeUnknown
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return FSTypeUnknown
	}

	f, err := os.Open("/proc/self/mounts")
	if err != nil {
		return FSTypeUnknown
	}
	defer f.Close()

	// Longest mount-point prefix wins.
	bestLen := -1
	best := FSTypeUnknown

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mountPoint, fsName := fields[1], fields[2]
		if !pathHasPrefix(abs, mountPoint) {
			continue
		}
		if len(mountPoint) > bestLen {
			bestLen = len(mountPoint)
			best = classifyFilesystem(fsName)
		}
	}
	if err := scanner.Err(); err != nil {
		return FSTypeUnknown
	}
	return best
}

func pathHasPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func classifyFilesystem(fsName string) FilesystemType {
	name := strings.ToLower(fsName)
	switch {
	case strings.HasPrefix(name, "nfs"):
		return FSTypeNFS
	case name == "cifs" || name == "smbfs" || name == "smb2":
		return FSTypeSMB
	case name == "fuse.sshfs":
		return FSTypeSSHFS
	case name == "fuse" || strings.HasPrefix(name, "fuse."):
		return FSTypeFUSE
	default:
		return FSTypeLocal
	}
}
