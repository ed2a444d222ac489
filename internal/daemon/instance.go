package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrAlreadyRunning is returned when another daemon owns the home dir.
var ErrAlreadyRunning = errors.New("daemon already running")

// Instance keeps one daemon per home dir. The owner holds an advisory lock
// on the instance file for as long as it runs and writes its pid into it.
// The kernel drops the lock when the owner dies, so a crash leaves a file
// that the next daemon simply takes over.
//
// The file is emptied, not removed, on release: unlinking a locked path
// would let two processes lock different inodes under the same name.
type Instance struct {
	path string
	f    *os.File
}

func NewInstance(path string) *Instance {
	return &Instance{path: path}
}

// Acquire takes ownership and records the current pid.
func (i *Instance) Acquire() error {
	if i.f != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(i.path), 0700); err != nil {
		return fmt.Errorf("create home dir: %w", err)
	}
	if info, err := os.Lstat(i.path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("instance file %s is a symlink", i.path)
	}

	f, err := os.OpenFile(i.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open instance file: %w", err)
	}
	if err := tryLock(f); err != nil {
		f.Close()
		if errors.Is(err, ErrAlreadyRunning) {
			if pid, _ := i.Owner(); pid > 0 {
				return fmt.Errorf("%w (pid %d)", err, pid)
			}
		}
		return err
	}
	if err := stamp(f, strconv.Itoa(os.Getpid())+"\n"); err != nil {
		unlock(f)
		f.Close()
		return fmt.Errorf("write instance file: %w", err)
	}
	i.f = f
	return nil
}

// Release clears the recorded pid and gives up the lock.
func (i *Instance) Release() error {
	if i.f == nil {
		return nil
	}
	f := i.f
	i.f = nil
	err := stamp(f, "")
	unlock(f)
	return errors.Join(err, f.Close())
}

func stamp(f *os.File, content string) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.WriteAt([]byte(content), 0); err != nil {
		return err
	}
	return f.Sync()
}

// Owner returns the pid written in the instance file. It is 0 when the
// file is missing or was cleared by a clean shutdown; a crashed owner
// leaves its pid behind, so use Running to ask about a live daemon.
func (i *Instance) Owner() (int, error) {
	data, err := os.ReadFile(i.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, nil
	}
	pid, err := strconv.Atoi(text)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("instance file %s: bad pid %q", i.path, text)
	}
	return pid, nil
}

// Running returns the pid of the daemon that holds the lock, or 0 when
// nobody does.
func (i *Instance) Running() int {
	if i.f != nil {
		return os.Getpid()
	}
	f, err := os.Open(i.path)
	if err != nil {
		return 0
	}
	defer f.Close()

	if err := tryLock(f); err == nil {
		unlock(f)
		return 0
	} else if !errors.Is(err, ErrAlreadyRunning) {
		return 0
	}
	pid, _ := i.Owner()
	return pid
}

func (i *Instance) Held() bool {
	return i.f != nil
}

func (i *Instance) Path() string {
	return i.path
}
