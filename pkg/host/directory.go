package host

import (
	"sync"

	"github.com/gocraft/dbr/v2"
)

// MemoryDirectory is an in-memory principal directory implementing the
// permission.PrincipalResolver contract, used in tests and standalone mode
type MemoryDirectory struct {
	users map[int64]bool
	roles map[int64]bool

	sync.RWMutex
}

// NewMemoryDirectory returns an initialized in-memory directory
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		users: make(map[int64]bool),
		roles: make(map[int64]bool),
	}
}

// AddUser registers a user id as resolvable
func (d *MemoryDirectory) AddUser(userID int64) {
	d.Lock()
	d.users[userID] = true
	d.Unlock()
}

// AddRole registers a role id as resolvable
func (d *MemoryDirectory) AddRole(roleID int64) {
	d.Lock()
	d.roles[roleID] = true
	d.Unlock()
}

// UserExists reports whether a user id resolves
func (d *MemoryDirectory) UserExists(userID int64) bool {
	d.RLock()
	defer d.RUnlock()

	return d.users[userID]
}

// RoleExists reports whether a role id resolves
func (d *MemoryDirectory) RoleExists(roleID int64) bool {
	d.RLock()
	defer d.RUnlock()

	return d.roles[roleID]
}

// MySQLDirectory resolves principal references against the host's own
// user and role tables; read-only
type MySQLDirectory struct {
	db *dbr.Connection
}

// NewMySQLDirectory returns a directory backed by the host database
func NewMySQLDirectory(db *dbr.Connection) (*MySQLDirectory, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}

	return &MySQLDirectory{db}, nil
}

func (d *MySQLDirectory) exists(q string, id int64) bool {
	var n int64

	err := d.db.NewSession(nil).
		SelectBySql(q, id).
		LoadOne(&n)

	if err != nil {
		return false
	}

	return n > 0
}

// UserExists reports whether a user id resolves
func (d *MySQLDirectory) UserExists(userID int64) bool {
	return d.exists("SELECT COUNT(*) FROM users WHERE id = ?", userID)
}

// RoleExists reports whether a role id resolves
func (d *MySQLDirectory) RoleExists(roleID int64) bool {
	return d.exists("SELECT COUNT(*) FROM roles WHERE id = ?", roleID)
}
