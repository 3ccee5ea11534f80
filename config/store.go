package config

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	appConfigFile    = "config.toml"
	sessionsFile     = "sessions.toml"
	foldersFile      = "folders.toml"
	openSessionsFile = "open_sessions.toml"
)

// DefaultDir returns the platform config directory for the application,
// creating it if needed.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "locating user config directory")
	}
	dir := filepath.Join(base, "yassh")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", errors.Wrapf(err, "creating config directory %s", dir)
	}
	return dir, nil
}

// Store keeps the session and folder collections and reads/writes them
// under one directory. It carries no synchronization; the session manager
// owns it from a single goroutine.
type Store struct {
	dir      string
	App      App
	Sessions []Session
	Folders  []Folder
}

// NewStore returns a store rooted at dir without touching the disk.
func NewStore(dir string) *Store {
	return &Store{dir: dir, App: DefaultApp()}
}

// Load reads every collection from disk. Missing files are treated as
// empty; a corrupt collection is logged and skipped so one bad file does
// not take the others down.
func (st *Store) Load() {
	if err := st.loadFile(appConfigFile, &st.App); err != nil {
		log.WithError(err).Warn("could not load app config, using defaults")
		st.App = DefaultApp()
	}
	var sessions struct {
		Sessions []Session `toml:"session"`
	}
	if err := st.loadFile(sessionsFile, &sessions); err != nil {
		log.WithError(err).Warn("could not load sessions, starting empty")
	} else {
		st.Sessions = sessions.Sessions
	}
	for i := range st.Sessions {
		st.Sessions[i].normalize()
	}
	var folders struct {
		Folders []Folder `toml:"folder"`
	}
	if err := st.loadFile(foldersFile, &folders); err != nil {
		log.WithError(err).Warn("could not load folders, starting empty")
	} else {
		st.Folders = folders.Folders
	}
}

// Save writes every collection back to disk.
func (st *Store) Save() error {
	if err := st.saveFile(appConfigFile, st.App); err != nil {
		return err
	}
	if err := st.saveFile(sessionsFile, struct {
		Sessions []Session `toml:"session"`
	}{st.Sessions}); err != nil {
		return err
	}
	return st.saveFile(foldersFile, struct {
		Folders []Folder `toml:"folder"`
	}{st.Folders})
}

// LoadOpenSessions returns the session IDs that were open when the last
// run exited.
func (st *Store) LoadOpenSessions() []uuid.UUID {
	var open struct {
		IDs []uuid.UUID `toml:"open"`
	}
	if err := st.loadFile(openSessionsFile, &open); err != nil {
		log.WithError(err).Debug("no open session list")
		return nil
	}
	return open.IDs
}

// SaveOpenSessions records the session IDs currently open.
func (st *Store) SaveOpenSessions(ids []uuid.UUID) error {
	return st.saveFile(openSessionsFile, struct {
		IDs []uuid.UUID `toml:"open"`
	}{ids})
}

func (st *Store) loadFile(name string, v interface{}) error {
	path := filepath.Join(st.dir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if _, err := toml.DecodeFile(path, v); err != nil {
		return errors.Wrapf(err, "decoding %s", name)
	}
	return nil
}

func (st *Store) saveFile(name string, v interface{}) error {
	path := filepath.Join(st.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.Wrapf(err, "writing %s", name)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(v); err != nil {
		return errors.Wrapf(err, "encoding %s", name)
	}
	return nil
}

// AddSession appends a session, placing it last within its folder.
func (st *Store) AddSession(s Session) {
	maxOrder := -1
	for _, existing := range st.Sessions {
		if existing.FolderID == s.FolderID && existing.Order > maxOrder {
			maxOrder = existing.Order
		}
	}
	s.Order = maxOrder + 1
	st.Sessions = append(st.Sessions, s)
}

// UpdateSession replaces the stored session with the same ID, if any.
func (st *Store) UpdateSession(s Session) {
	for i := range st.Sessions {
		if st.Sessions[i].ID == s.ID {
			st.Sessions[i] = s
			return
		}
	}
}

// RemoveSession deletes the session with the given ID.
func (st *Store) RemoveSession(id uuid.UUID) {
	kept := st.Sessions[:0]
	for _, s := range st.Sessions {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	st.Sessions = kept
}

// Session returns the stored session with the given ID.
func (st *Store) Session(id uuid.UUID) (Session, bool) {
	for _, s := range st.Sessions {
		if s.ID == id {
			return s, true
		}
	}
	return Session{}, false
}

// DuplicateSession copies a session under a fresh identity, named
// "<name> (Copy)", and returns the new ID.
func (st *Store) DuplicateSession(id uuid.UUID) (uuid.UUID, bool) {
	s, ok := st.Session(id)
	if !ok {
		return uuid.Nil, false
	}
	s.ID = uuid.New()
	s.Name += " (Copy)"
	st.AddSession(s)
	return s.ID, true
}

// SessionsInFolder returns the sessions directly inside folderID (the nil
// UUID means the tree root), ordered.
func (st *Store) SessionsInFolder(folderID uuid.UUID) []Session {
	var out []Session
	for _, s := range st.Sessions {
		if s.FolderID == folderID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// MoveSessionToFolder reparents a session, placing it last in the target.
func (st *Store) MoveSessionToFolder(id, folderID uuid.UUID) {
	maxOrder := -1
	for _, s := range st.Sessions {
		if s.FolderID == folderID && s.ID != id && s.Order > maxOrder {
			maxOrder = s.Order
		}
	}
	for i := range st.Sessions {
		if st.Sessions[i].ID == id {
			st.Sessions[i].FolderID = folderID
			st.Sessions[i].Order = maxOrder + 1
			return
		}
	}
}

// AddFolder appends a folder.
func (st *Store) AddFolder(f Folder) {
	st.Folders = append(st.Folders, f)
}

// RemoveFolder deletes a folder, moving its sessions to the tree root.
func (st *Store) RemoveFolder(id uuid.UUID) {
	kept := st.Folders[:0]
	for _, f := range st.Folders {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	st.Folders = kept
	for i := range st.Sessions {
		if st.Sessions[i].FolderID == id {
			st.Sessions[i].FolderID = uuid.Nil
		}
	}
}

// ChildFolders returns the folders directly inside parentID.
func (st *Store) ChildFolders(parentID uuid.UUID) []Folder {
	var out []Folder
	for _, f := range st.Folders {
		if f.ParentID == parentID {
			out = append(out, f)
		}
	}
	return out
}
