package boltsecurestore

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/btcsuite/btcwallet/snacl"
	"github.com/vaultline/walletd/pkg/securestore"
	bolt "go.etcd.io/bbolt"
)

const (
	// DefaultDBTimeout is how long to wait for the file lock of the DB.
	DefaultDBTimeout = 5 * time.Second
)

var (
	// RootKeyBucketName is the name of the root key store bucket.
	RootKeyBucketName = []byte("root")
	// SecretsBucketName is the name of the bucket holding the encrypted
	// entries.
	SecretsBucketName = []byte("secrets")

	// encryptionKeyID is the name of the database key that stores the
	// encryption key, encrypted with a salted + hashed password. The
	// format is 32 bytes of salt, and the rest is encrypted key.
	encryptionKeyID = []byte("enckey")
)

type boltSecureStorage struct {
	db *bolt.DB

	encKeyMtx sync.RWMutex
	encKey    *snacl.SecretKey
}

// NewSecureStorage creates a bolt instance of the SecureStorage interface.
func NewSecureStorage(datadir, filename string) (securestore.SecureStorage, error) {
	if err := os.MkdirAll(datadir, os.ModeDir|0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(
		filepath.Join(datadir, filename), 0600,
		&bolt.Options{Timeout: DefaultDBTimeout},
	)
	if err != nil {
		return nil, err
	}

	// If the store's buckets don't exist, create them.
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(RootKeyBucketName); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(SecretsBucketName)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &boltSecureStorage{db: db}, nil
}

// IsLocked returns whether the store is locked by checking if the encryption
// key is stored in-memory.
func (s *boltSecureStorage) IsLocked() bool {
	s.encKeyMtx.RLock()
	defer s.encKeyMtx.RUnlock()

	return s.encKey == nil
}

// Lock eventually locks the store by flushing the in-memory encryption key.
func (s *boltSecureStorage) Lock() {
	s.encKeyMtx.Lock()
	defer s.encKeyMtx.Unlock()

	s.lock()
}

// CreateUnlock sets an encryption key if one is not already set, otherwise it
// checks if the password is correct for the stored encryption key.
func (s *boltSecureStorage) CreateUnlock(password *[]byte) error {
	// Is the store is already unlocked there's nothing to do here.
	if !s.IsLocked() {
		return nil
	}

	if password == nil {
		return ErrPasswordRequired
	}

	s.encKeyMtx.Lock()
	defer s.encKeyMtx.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(RootKeyBucketName)
		if bucket == nil {
			return ErrRootKeyBucketNotFound
		}

		dbKey := bucket.Get(encryptionKeyID)
		if len(dbKey) > 0 {
			// A key is already stored, so try to unlock with the password.
			encKey := &snacl.SecretKey{}
			if err := encKey.Unmarshal(dbKey); err != nil {
				return err
			}

			if err := encKey.DeriveKey(password); err != nil {
				return ErrInvalidPassword
			}

			s.encKey = encKey
			return nil
		}

		// The encryption key is not yet stored, so create a new one.
		encKey, err := snacl.NewSecretKey(
			password, snacl.DefaultN, snacl.DefaultR, snacl.DefaultP,
		)
		if err != nil {
			return err
		}

		if err := bucket.Put(encryptionKeyID, encKey.Marshal()); err != nil {
			return err
		}

		s.encKey = encKey
		return nil
	})
}

// ChangePassword checks the old password and re-encrypts every entry with a
// key derived from the new one, all in a single transaction.
func (s *boltSecureStorage) ChangePassword(oldPw, newPw []byte) error {
	// The store must be already unlocked. This ensures that there already is a
	// key in the DB.
	if s.IsLocked() {
		return ErrStoreLocked
	}

	if oldPw == nil || newPw == nil {
		return ErrPasswordRequired
	}

	encKeyNew, err := snacl.NewSecretKey(
		&newPw, snacl.DefaultN, snacl.DefaultR, snacl.DefaultP,
	)
	if err != nil {
		return err
	}

	s.encKeyMtx.Lock()
	defer s.encKeyMtx.Unlock()

	if err := s.db.Update(func(tx *bolt.Tx) error {
		rootBucket := tx.Bucket(RootKeyBucketName)
		if rootBucket == nil {
			return ErrRootKeyBucketNotFound
		}
		dbKey := rootBucket.Get(encryptionKeyID)
		// The encryption key must be present otherwise we are in the wrong
		// state to change the password.
		if len(dbKey) <= 0 {
			return ErrEncKeyNotFound
		}

		encKeyOld := &snacl.SecretKey{}
		if err := encKeyOld.Unmarshal(dbKey); err != nil {
			return err
		}
		if err := encKeyOld.DeriveKey(&oldPw); err != nil {
			return ErrInvalidPassword
		}

		bucket := tx.Bucket(SecretsBucketName)
		if bucket == nil {
			return ErrSecretsBucketNotFound
		}

		reencrypted := make(map[string][]byte)
		if err := bucket.ForEach(func(k, v []byte) error {
			value, err := encKeyOld.Decrypt(v)
			if err != nil {
				return err
			}
			encryptedValue, err := encKeyNew.Encrypt(value)
			if err != nil {
				return err
			}
			reencrypted[string(k)] = encryptedValue
			return nil
		}); err != nil {
			return err
		}
		// Bolt doesn't allow to mutate a bucket while iterating it.
		for k, v := range reencrypted {
			if err := bucket.Put([]byte(k), v); err != nil {
				return err
			}
		}

		defer encKeyOld.Zero()
		return rootBucket.Put(encryptionKeyID, encKeyNew.Marshal())
	}); err != nil {
		return err
	}

	s.lock()
	s.encKey = encKeyNew
	return nil
}

// Put stores the provided data encrypted.
func (s *boltSecureStorage) Put(key string, value []byte) error {
	if len(key) <= 0 {
		return ErrMissingDataKey
	}
	if len(value) <= 0 {
		return ErrMissingData
	}

	s.encKeyMtx.RLock()
	defer s.encKeyMtx.RUnlock()

	if s.encKey == nil {
		return ErrStoreLocked
	}

	// Encrypt value with encryption key.
	encryptedValue, err := s.encKey.Encrypt(value)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(SecretsBucketName)
		if bucket == nil {
			return ErrSecretsBucketNotFound
		}
		return bucket.Put([]byte(key), encryptedValue)
	})
}

// Get retrieves and decrypts data for the given key.
func (s *boltSecureStorage) Get(key string) ([]byte, error) {
	if len(key) <= 0 {
		return nil, ErrMissingDataKey
	}

	s.encKeyMtx.RLock()
	defer s.encKeyMtx.RUnlock()

	if s.encKey == nil {
		return nil, ErrStoreLocked
	}

	var value []byte
	if err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(SecretsBucketName)
		if bucket == nil {
			return ErrSecretsBucketNotFound
		}

		encryptedValue := bucket.Get([]byte(key))
		if len(encryptedValue) <= 0 {
			return ErrDataNotFound
		}

		v, err := s.encKey.Decrypt(encryptedValue)
		if err != nil {
			return err
		}

		value = make([]byte, len(v))
		copy(value[:], v)
		return nil
	}); err != nil {
		return nil, err
	}

	return value, nil
}

// Has returns whether the given key exists, without decrypting its value.
func (s *boltSecureStorage) Has(key string) (bool, error) {
	if len(key) <= 0 {
		return false, ErrMissingDataKey
	}
	if s.IsLocked() {
		return false, ErrStoreLocked
	}

	var found bool
	if err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(SecretsBucketName)
		if bucket == nil {
			return ErrSecretsBucketNotFound
		}
		found = len(bucket.Get([]byte(key))) > 0
		return nil
	}); err != nil {
		return false, err
	}

	return found, nil
}

func (s *boltSecureStorage) Keys() ([]string, error) {
	if s.IsLocked() {
		return nil, ErrStoreLocked
	}

	keys := make([]string, 0)
	if err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(SecretsBucketName)
		if bucket == nil {
			return ErrSecretsBucketNotFound
		}
		return bucket.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	}); err != nil {
		return nil, err
	}

	return keys, nil
}

// Close closes the underlying database and zeroes the encryption key stored
// in memory.
func (s *boltSecureStorage) Close() error {
	s.encKeyMtx.Lock()
	defer s.encKeyMtx.Unlock()

	s.lock()

	return s.db.Close()
}

func (s *boltSecureStorage) lock() {
	if s.encKey != nil {
		s.encKey.Zero()
		s.encKey = nil
	}
}
