package securestore

// SecureStorage interface defines the methods for a key/value DB that secures
// its content by encrypting the values of the pairs. Entries can only be
// added or overwritten, never removed.
type SecureStorage interface {
	// Lock locks the DB once unlocked.
	Lock()
	// Close closes the connection to the DB.
	Close() (err error)
	// IsLocked returns whether the DB is (un)locked.
	IsLocked() (locked bool)
	// CreateUnlock creates or unlocks the DB with a password.
	CreateUnlock(password *[]byte) (err error)
	// ChangePassword allows to change the password for unlocking the DB.
	ChangePassword(oldPw, newPw []byte) (err error)
	// Put adds or overwrites the key/value entry.
	Put(key string, value []byte) (err error)
	// Get retrieves the value of the entry with the given key.
	Get(key string) (value []byte, err error)
	// Has returns whether an entry with the given key exists.
	Has(key string) (found bool, err error)
	// Keys returns the list of all the keys in the DB.
	Keys() (keys []string, err error)
}
